// Package api provides the HTTP API: hospital auth, patient and report
// CRUD, AI job submission/polling/cancellation, tumor board cases, Azure
// health probes and the activity log.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/pkg/services"
)

// hospitalIDKey is the gin context key set by the auth middleware.
const hospitalIDKey = "hospital_id"

// authClaims are the JWT claims issued at sign-in.
type authClaims struct {
	HospitalID string `json:"hospital_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(hospital *ent.Hospital) (string, error) {
	claims := authClaims{
		HospitalID: hospital.ID,
		Email:      hospital.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   hospital.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.jwtExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// authMiddleware validates the bearer token and stores the hospital ID on
// the request context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
			return
		}

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(t *jwt.Token) (any, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(s.jwtSecret), nil
			})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired token"})
			return
		}

		c.Set(hospitalIDKey, claims.HospitalID)
		c.Next()
	}
}

func hospitalID(c *gin.Context) string {
	return c.GetString(hospitalIDKey)
}

type signupRequest struct {
	Name               string `json:"name" binding:"required"`
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required"`
	RegistrationNumber string `json:"registrationNumber" binding:"required"`
	Address            string `json:"address"`
	Phone              string `json:"phone"`
}

type signinRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	hospital, err := s.hospitals.Signup(c.Request.Context(), services.SignupRequest{
		Name:               req.Name,
		Email:              req.Email,
		Password:           req.Password,
		RegistrationNumber: req.RegistrationNumber,
		Address:            req.Address,
		Phone:              req.Phone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := s.issueToken(hospital)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"hospital":     hospitalResponse(hospital),
	})
}

func (s *Server) handleSignin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	hospital, err := s.hospitals.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "sign-in failed"})
		return
	}

	token, err := s.issueToken(hospital)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"hospital":     hospitalResponse(hospital),
	})
}

func hospitalResponse(h *ent.Hospital) gin.H {
	return gin.H{
		"id":                 h.ID,
		"name":               h.Name,
		"email":              h.Email,
		"registrationNumber": h.RegistrationNumber,
		"address":            h.Address,
		"phone":              h.Phone,
		"createdAt":          h.CreatedAt,
		"updatedAt":          h.UpdatedAt,
	}
}
