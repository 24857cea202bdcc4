package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/ent/hospital"
)

// ErrInvalidCredentials is returned on a failed sign-in; it deliberately
// does not distinguish unknown email from wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// HospitalService manages hospital accounts and credential checks.
type HospitalService struct {
	client *ent.Client
}

// NewHospitalService creates a new HospitalService.
func NewHospitalService(client *ent.Client) *HospitalService {
	return &HospitalService{client: client}
}

// SignupRequest carries hospital registration fields.
type SignupRequest struct {
	Name               string
	Email              string
	Password           string
	RegistrationNumber string
	Address            string
	Phone              string
}

// Signup registers a hospital with a bcrypt-hashed password.
func (s *HospitalService) Signup(ctx context.Context, req SignupRequest) (*ent.Hospital, error) {
	if req.Name == "" {
		return nil, NewValidationError("name", "required")
	}
	if req.Email == "" {
		return nil, NewValidationError("email", "required")
	}
	if len(req.Password) < 8 {
		return nil, NewValidationError("password", "must be at least 8 characters")
	}
	if req.RegistrationNumber == "" {
		return nil, NewValidationError("registration_number", "required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	builder := s.client.Hospital.Create().
		SetID(uuid.New().String()).
		SetName(req.Name).
		SetEmail(req.Email).
		SetPasswordHash(string(hash)).
		SetRegistrationNumber(req.RegistrationNumber)
	if req.Address != "" {
		builder.SetAddress(req.Address)
	}
	if req.Phone != "" {
		builder.SetPhone(req.Phone)
	}

	created, err := builder.Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create hospital: %w", err)
	}
	return created, nil
}

// Authenticate verifies credentials and returns the hospital on success.
func (s *HospitalService) Authenticate(ctx context.Context, email, password string) (*ent.Hospital, error) {
	row, err := s.client.Hospital.Query().
		Where(hospital.EmailEQ(email)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to query hospital: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return row, nil
}

// Get returns one hospital by ID.
func (s *HospitalService) Get(ctx context.Context, id string) (*ent.Hospital, error) {
	row, err := s.client.Hospital.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query hospital: %w", err)
	}
	return row, nil
}
