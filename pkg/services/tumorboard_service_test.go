package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyno-health/cyno/ent/aireport"
	"github.com/cyno-health/cyno/ent/tumorboardcase"
	testdb "github.com/cyno-health/cyno/test/database"
)

func TestTumorBoardService_CreateSeedsAISummary(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewTumorBoardService(client.Client)
	ctx := context.Background()

	hospital := seedHospital(t, client.Client)
	patient := seedPatient(t, client.Client, hospital.ID)

	t.Run("without prior analysis", func(t *testing.T) {
		row, err := service.Create(ctx, patient.ID, hospital.ID)
		require.NoError(t, err)
		assert.Equal(t, tumorboardcase.StatusDraft, row.Status)
		assert.Nil(t, row.AiSummary)
	})

	t.Run("with completed analysis", func(t *testing.T) {
		reports := NewAIReportService(client.Client, 300)
		job, err := reports.Submit(ctx, patient.ID, 2)
		require.NoError(t, err)
		require.NoError(t, client.AIReport.UpdateOneID(job.ID).
			SetStatus(aireport.StatusCompleted).
			SetKeyFindings(`{"results": []}`).
			Exec(ctx))

		row, err := service.Create(ctx, patient.ID, hospital.ID)
		require.NoError(t, err)
		require.NotNil(t, row.AiSummary)
		assert.Contains(t, *row.AiSummary, "AI analysis of 2 reports")
	})
}

func TestTumorBoardService_ListExcludesDeleted(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewTumorBoardService(client.Client)
	ctx := context.Background()

	hospital := seedHospital(t, client.Client)
	patient := seedPatient(t, client.Client, hospital.ID)

	kept, err := service.Create(ctx, patient.ID, hospital.ID)
	require.NoError(t, err)
	deleted, err := service.Create(ctx, patient.ID, hospital.ID)
	require.NoError(t, err)
	require.NoError(t, service.SoftDelete(ctx, deleted.ID))

	rows, err := service.List(ctx, hospital.ID, "", 0, 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, kept.ID, rows[0].ID)

	// The deleted row still exists (soft delete, never a removal).
	row, err := service.Get(ctx, deleted.ID)
	require.NoError(t, err)
	assert.Equal(t, tumorboardcase.StatusDeleted, row.Status)
}

func TestTumorBoardService_UpdateNotes(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewTumorBoardService(client.Client)
	ctx := context.Background()

	hospital := seedHospital(t, client.Client)
	patient := seedPatient(t, client.Client, hospital.ID)
	row, err := service.Create(ctx, patient.ID, hospital.ID)
	require.NoError(t, err)

	notes := "Mediastinal nodes enlarged on CT"
	decision := "Proceed to biopsy"
	updated, err := service.UpdateNotes(ctx, row.ID, UpdateNotesRequest{
		RadiologyNotes: &notes,
		FinalDecision:  &decision,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.RadiologyNotes)
	assert.Equal(t, notes, *updated.RadiologyNotes)
	require.NotNil(t, updated.FinalDecision)
	assert.Equal(t, decision, *updated.FinalDecision)
	assert.Nil(t, updated.PathologyNotes)

	t.Run("empty update rejected", func(t *testing.T) {
		_, err := service.UpdateNotes(ctx, row.ID, UpdateNotesRequest{})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestTumorBoardService_JobLifecycle(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewTumorBoardService(client.Client)
	ctx := context.Background()

	hospital := seedHospital(t, client.Client)
	patient := seedPatient(t, client.Client, hospital.ID)
	row, err := service.Create(ctx, patient.ID, hospital.ID)
	require.NoError(t, err)

	queued, err := service.SubmitAIJob(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, tumorboardcase.StatusQueued, queued.Status)
	assert.Equal(t, 0, queued.ProgressPercent)

	t.Run("double submit rejected", func(t *testing.T) {
		_, err := service.SubmitAIJob(ctx, row.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	cancelled, err := service.Cancel(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, tumorboardcase.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CompletedAt)

	t.Run("cancel is not retryable", func(t *testing.T) {
		_, err := service.Retry(ctx, row.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	// A failed job is retryable and re-enters the queue.
	require.NoError(t, client.TumorBoardCase.UpdateOneID(row.ID).
		SetStatus(tumorboardcase.StatusFailed).
		SetErrorMessage("No AI analysis data").
		Exec(ctx))

	retried, err := service.Retry(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, tumorboardcase.StatusQueued, retried.Status)
	assert.Nil(t, retried.ErrorMessage)
}

func TestTumorBoardService_SubmitOnDeletedCase(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewTumorBoardService(client.Client)
	ctx := context.Background()

	hospital := seedHospital(t, client.Client)
	patient := seedPatient(t, client.Client, hospital.ID)
	row, err := service.Create(ctx, patient.ID, hospital.ID)
	require.NoError(t, err)
	require.NoError(t, service.SoftDelete(ctx, row.ID))

	_, err = service.SubmitAIJob(ctx, row.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
