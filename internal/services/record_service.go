package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/SDARS-2025/discipline-service/internal/errors"
	"github.com/SDARS-2025/discipline-service/internal/events"
	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/validator"
)

// RecordService owns the disciplinary record lifecycle: creation,
// mutation, soft deletion and restoration, plus the per-student
// offense numbering that every lifecycle transition maintains.
type RecordService interface {
	Create(ctx context.Context, actorID uint, req *CreateRecordRequest) (*models.Record, error)
	Update(ctx context.Context, actorID uint, id uint, req *UpdateRecordRequest) (*models.Record, error)
	Delete(ctx context.Context, actorID uint, id uint) (*models.Record, error)
	Restore(ctx context.Context, actorID uint, id uint) (*models.Record, error)
	GetByID(ctx context.Context, id uint) (*models.Record, error)
	ListActive(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error)
	ListDeleted(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error)
}

// ===== REQUEST STRUCTS =====

type CreateRecordRequest struct {
	StudentName        string              `json:"student_name" validate:"required,not_blank,max=100"`
	MatricNumber       models.MatricNumber `json:"matric_number" validate:"required,matric_number"`
	Level              string              `json:"level" validate:"required,max=50"`
	Department         string              `json:"department" validate:"required,max=100"`
	Offense            string              `json:"offense" validate:"required,not_blank,max=500"`
	Punishment         string              `json:"punishment" validate:"required,not_blank,max=500"`
	Status             string              `json:"status" validate:"required,max=50"`
	Date               time.Time           `json:"date" validate:"required"`
	PunishmentDuration string              `json:"punishment_duration"`
	ResumptionPeriod   string              `json:"resumption_period"`
}

// UpdateRecordRequest is a partial update; nil fields are left alone.
type UpdateRecordRequest struct {
	StudentName        *string              `json:"student_name" validate:"omitempty,not_blank,max=100"`
	MatricNumber       *models.MatricNumber `json:"matric_number" validate:"omitempty,matric_number"`
	Level              *string              `json:"level" validate:"omitempty,max=50"`
	Department         *string              `json:"department" validate:"omitempty,max=100"`
	Offense            *string              `json:"offense" validate:"omitempty,not_blank,max=500"`
	Punishment         *string              `json:"punishment" validate:"omitempty,not_blank,max=500"`
	Status             *string              `json:"status" validate:"omitempty,max=50"`
	Date               *time.Time           `json:"date"`
	PunishmentDuration *string              `json:"punishment_duration"`
	ResumptionPeriod   *string              `json:"resumption_period"`
}

type recordService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewRecordService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) RecordService {
	return &recordService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ===== LIFECYCLE OPERATIONS =====

func (s *recordService) Create(ctx context.Context, actorID uint, req *CreateRecordRequest) (*models.Record, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return nil, ve
		}
		return nil, err
	}

	record := &models.Record{
		StudentName:        req.StudentName,
		MatricNumber:       req.MatricNumber,
		Level:              req.Level,
		Department:         req.Department,
		Offense:            req.Offense,
		Punishment:         req.Punishment,
		Status:             req.Status,
		Date:               req.Date,
		PunishmentDuration: models.NormalizeEffectivePeriod(req.PunishmentDuration),
		ResumptionPeriod:   models.NormalizeEffectivePeriod(req.ResumptionPeriod),
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Record().Create(ctx, record); err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}
		return s.renumberStudent(ctx, tx, record.MatricNumber)
	})
	if err != nil {
		return nil, err
	}

	// Renumbering may have assigned a position other than last when the
	// new record's date predates existing ones; reload to report it.
	record, err = s.repo.Record().GetByID(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload record: %w", err)
	}

	s.logger.Info("record created",
		"record_id", record.ID,
		"matric_number", record.MatricNumber.String(),
		"offense_count", record.OffenseCount,
		"actor_id", actorID)
	s.publish(ctx, events.NewRecordEvent(events.RecordCreated, actorID, record))

	return record, nil
}

func (s *recordService) Update(ctx context.Context, actorID uint, id uint, req *UpdateRecordRequest) (*models.Record, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return nil, ve
		}
		return nil, err
	}

	record, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}

	previousMatric := record.MatricNumber
	applyRecordUpdate(record, req)

	// A changed matric number or date moves the record within (or
	// across) per-student sequences, so both students get renumbered.
	needsRenumber := req.Date != nil || req.MatricNumber != nil

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Record().Update(ctx, record); err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		if !needsRenumber {
			return nil
		}
		if err := s.renumberStudent(ctx, tx, record.MatricNumber); err != nil {
			return err
		}
		if previousMatric != record.MatricNumber {
			return s.renumberStudent(ctx, tx, previousMatric)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	record, err = s.repo.Record().GetByID(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload record: %w", err)
	}

	s.logger.Info("record updated", "record_id", record.ID, "actor_id", actorID)
	s.publish(ctx, events.NewRecordEvent(events.RecordUpdated, actorID, record))

	return record, nil
}

func (s *recordService) Delete(ctx context.Context, actorID uint, id uint) (*models.Record, error) {
	var record *models.Record
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		loaded, err := tx.Record().GetByID(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("failed to load record: %w", err)
		}
		if loaded.IsDeleted {
			return ErrRecordAlreadyDeleted
		}

		// The write is conditional on the record still being active, so
		// a concurrent delete landing after the read above surfaces as
		// zero matched rows rather than a silent double delete.
		now := time.Now()
		if err := tx.Record().SoftDelete(ctx, id, now); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrRecordAlreadyDeleted
			}
			return fmt.Errorf("failed to soft-delete record: %w", err)
		}
		loaded.IsDeleted = true
		loaded.DeletedAt = &now
		record = loaded

		return s.renumberStudent(ctx, tx, loaded.MatricNumber)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("record deleted", "record_id", record.ID, "actor_id", actorID)
	s.publish(ctx, events.NewRecordEvent(events.RecordDeleted, actorID, record))

	return record, nil
}

func (s *recordService) Restore(ctx context.Context, actorID uint, id uint) (*models.Record, error) {
	var record *models.Record
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		loaded, err := tx.Record().GetByID(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrRecordNotFound
			}
			return fmt.Errorf("failed to load record: %w", err)
		}
		if !loaded.IsDeleted {
			return ErrRecordNotDeleted
		}

		if err := tx.Record().Restore(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrRecordNotDeleted
			}
			return fmt.Errorf("failed to restore record: %w", err)
		}
		loaded.IsDeleted = false
		loaded.DeletedAt = nil
		record = loaded

		return s.renumberStudent(ctx, tx, loaded.MatricNumber)
	})
	if err != nil {
		return nil, err
	}

	// Renumbering reassigns the restored record's position; reload to
	// report the fresh offense number.
	record, err = s.repo.Record().GetByID(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload record: %w", err)
	}

	s.logger.Info("record restored",
		"record_id", record.ID,
		"offense_count", record.OffenseCount,
		"actor_id", actorID)
	s.publish(ctx, events.NewRecordEvent(events.RecordRestored, actorID, record))

	return record, nil
}

func (s *recordService) GetByID(ctx context.Context, id uint) (*models.Record, error) {
	return s.getActive(ctx, id)
}

func (s *recordService) ListActive(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error) {
	return s.repo.Record().ListActive(ctx, filters)
}

func (s *recordService) ListDeleted(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error) {
	return s.repo.Record().ListDeleted(ctx, filters)
}

// ===== OFFENSE NUMBERING =====

// renumberStudent rewrites the student's offense numbers as 1..N over
// their active records ordered by offense date. It must run inside a
// transaction: the row locks taken by GetActiveByStudentForUpdate are
// what serializes concurrent renumbers of the same student.
func (s *recordService) renumberStudent(ctx context.Context, tx repositories.Repository, matric models.MatricNumber) error {
	records, err := tx.Record().GetActiveByStudentForUpdate(ctx, matric)
	if err != nil {
		return fmt.Errorf("failed to lock student records: %w", err)
	}

	for i, record := range records {
		want := i + 1
		if record.OffenseCount == want {
			continue
		}
		if err := tx.Record().UpdateOffenseCount(ctx, record.ID, want); err != nil {
			return fmt.Errorf("failed to renumber record %d: %w", record.ID, err)
		}
	}
	return nil
}

// ===== HELPERS =====

func (s *recordService) getActive(ctx context.Context, id uint) (*models.Record, error) {
	record, err := s.repo.Record().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	// Deleted records are invisible outside the deleted listing.
	if record.IsDeleted {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

func applyRecordUpdate(record *models.Record, req *UpdateRecordRequest) {
	if req.StudentName != nil {
		record.StudentName = *req.StudentName
	}
	if req.MatricNumber != nil {
		record.MatricNumber = *req.MatricNumber
	}
	if req.Level != nil {
		record.Level = *req.Level
	}
	if req.Department != nil {
		record.Department = *req.Department
	}
	if req.Offense != nil {
		record.Offense = *req.Offense
	}
	if req.Punishment != nil {
		record.Punishment = *req.Punishment
	}
	if req.Status != nil {
		record.Status = *req.Status
	}
	if req.Date != nil {
		record.Date = *req.Date
	}
	if req.PunishmentDuration != nil {
		record.PunishmentDuration = models.NormalizeEffectivePeriod(*req.PunishmentDuration)
	}
	if req.ResumptionPeriod != nil {
		record.ResumptionPeriod = models.NormalizeEffectivePeriod(*req.ResumptionPeriod)
	}
}

func (s *recordService) publish(ctx context.Context, event *events.DisciplineEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish record event", "event_type", event.Type, "error", err)
	}
}
