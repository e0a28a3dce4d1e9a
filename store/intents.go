package store

import (
	"errors"
	"fmt"

	"earnspark-server/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no intent matches the given reference.
var ErrNotFound = errors.New("payment intent not found")

// IntentStore persists payment intents. Rows are append-then-finalize:
// created pending, finalized at most once, never deleted.
type IntentStore interface {
	Create(intent *models.PaymentIntent) error
	// FindByReference matches either the local reference or the
	// provider-assigned transaction id.
	FindByReference(reference string) (*models.PaymentIntent, error)
	// MarkTerminal finalizes the intent. Writes against a row that is
	// already terminal are ignored; terminal states are write-once.
	MarkTerminal(intent *models.PaymentIntent, status models.PaymentStatus, receipt, resultCode, resultDesc string) error
}

// GormIntentStore is the gorm-backed IntentStore.
type GormIntentStore struct {
	db *gorm.DB
}

func NewIntentStore(db *gorm.DB) *GormIntentStore {
	return &GormIntentStore{db: db}
}

func (s *GormIntentStore) Create(intent *models.PaymentIntent) error {
	if err := s.db.Create(intent).Error; err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

func (s *GormIntentStore) FindByReference(reference string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := s.db.
		Where("reference = ? OR provider_transaction_id = ?", reference, reference).
		First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment intent: %w", err)
	}
	return &intent, nil
}

func (s *GormIntentStore) MarkTerminal(intent *models.PaymentIntent, status models.PaymentStatus, receipt, resultCode, resultDesc string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}
	if !intent.Status.CanTransition(status) {
		// Already finalized; concurrent pollers derive the same status
		// from the same provider data, so this is not an error.
		return nil
	}

	updates := map[string]interface{}{
		"status": status,
	}
	if receipt != "" {
		updates["mpesa_receipt_number"] = receipt
	}
	if resultCode != "" {
		updates["provider_result_code"] = resultCode
	}
	if resultDesc != "" {
		updates["provider_result_description"] = resultDesc
	}

	// The in-memory intent reflects the derived status even when the
	// write fails; reporting the best-known status to the client takes
	// priority over the audit write.
	intent.Status = status
	if receipt != "" {
		intent.MpesaReceiptNumber = &receipt
	}
	if resultCode != "" {
		intent.ProviderResultCode = &resultCode
	}
	if resultDesc != "" {
		intent.ProviderResultDescription = &resultDesc
	}

	// The status guard in the WHERE clause keeps a slow concurrent
	// writer from overwriting an already-terminal row.
	err := s.db.Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", intent.ID, models.StatusPending).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to finalize payment intent: %w", err)
	}
	return nil
}
