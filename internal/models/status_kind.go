package models

import (
	"database/sql/driver"
	"fmt"
)

// StatusKind is the meaning of an order status, independent of its display name
type StatusKind string

const (
	StatusKindNew        StatusKind = "new"
	StatusKindProcessing StatusKind = "processing"
	StatusKindReady      StatusKind = "ready"
	StatusKindIssued     StatusKind = "issued"
	StatusKindPaid       StatusKind = "paid"
	StatusKindCancelled  StatusKind = "cancelled"
)

// IsValid reports whether k is one of the known kinds
func (k StatusKind) IsValid() bool {
	switch k {
	case StatusKindNew, StatusKindProcessing, StatusKindReady,
		StatusKindIssued, StatusKindPaid, StatusKindCancelled:
		return true
	}
	return false
}

// SetsIssuedAt reports whether entering a status of this kind stamps issued_at
func (k StatusKind) SetsIssuedAt() bool {
	return k == StatusKindReady || k == StatusKindIssued
}

// SetsPaidAt reports whether entering a status of this kind stamps paid_at
func (k StatusKind) SetsPaidAt() bool {
	return k == StatusKindPaid
}

// Scan implements sql.Scanner
func (k *StatusKind) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*k = StatusKind(v)
	case []byte:
		*k = StatusKind(v)
	default:
		return fmt.Errorf("cannot scan %T into StatusKind", src)
	}
	if !k.IsValid() {
		return fmt.Errorf("unknown status kind %q", string(*k))
	}
	return nil
}

// Value implements driver.Valuer
func (k StatusKind) Value() (driver.Value, error) {
	return string(k), nil
}
