package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cyno-health/cyno/ent"
)

// seedHospital creates a hospital row for tests that need a valid owner.
func seedHospital(t *testing.T, client *ent.Client) *ent.Hospital {
	t.Helper()
	hospital, err := client.Hospital.Create().
		SetID(uuid.New().String()).
		SetName("General Hospital").
		SetEmail(uuid.New().String() + "@example.org").
		SetPasswordHash("irrelevant").
		SetRegistrationNumber("REG-0001").
		Save(context.Background())
	require.NoError(t, err)
	return hospital
}

// seedPatient creates a patient under the given hospital.
func seedPatient(t *testing.T, client *ent.Client, hospitalID string) *ent.Patient {
	t.Helper()
	patient, err := client.Patient.Create().
		SetID(uuid.New().String()).
		SetPatientID("MRN-" + uuid.New().String()[:8]).
		SetName("Jane Doe").
		SetAge("52").
		SetGender("Female").
		SetHospitalID(hospitalID).
		Save(context.Background())
	require.NoError(t, err)
	return patient
}

// seedReport registers one uploaded report file for a patient.
func seedReport(t *testing.T, client *ent.Client, patientID, fileName string) *ent.Report {
	t.Helper()
	report, err := client.Report.Create().
		SetID(uuid.New().String()).
		SetPatientID(patientID).
		SetFileName(fileName).
		SetFilePath("/uploads/" + fileName).
		SetCategory("lab").
		Save(context.Background())
	require.NoError(t, err)
	return report
}
