package models

import "time"

// SubscriptionPlan enumerates available plan tiers.
type SubscriptionPlan string

const (
	PlanBasic   SubscriptionPlan = "BASIC"
	PlanPremium SubscriptionPlan = "PREMIUM"
)

// SubscriptionStatus enumerates subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionExpired  SubscriptionStatus = "EXPIRED"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
)

// Subscription grants a school access to the platform for a validity window.
// At most one ACTIVE subscription exists per school at any time.
type Subscription struct {
	ID        string             `db:"id" json:"id"`
	SchoolID  string             `db:"school_id" json:"school_id"`
	Plan      SubscriptionPlan   `db:"plan" json:"plan"`
	Status    SubscriptionStatus `db:"status" json:"status"`
	StartDate time.Time          `db:"start_date" json:"start_date"`
	EndDate   time.Time          `db:"end_date" json:"end_date"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}
