package models

import (
	"time"

	"github.com/google/uuid"
)

type ProfileType string

type Role string

type MemberStatus string

type InvitationStatus string

type BudgetPeriod string

type PaymentMethod string

const (
	ProfileTypePersonal     ProfileType = "personal"
	ProfileTypeFamily       ProfileType = "family"
	ProfileTypeBusiness     ProfileType = "business"
	ProfileTypeSplitExpense ProfileType = "split_expense"

	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"

	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"

	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"

	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"

	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodApplePay   PaymentMethod = "apple_pay"
	PaymentMethodGooglePay  PaymentMethod = "google_pay"
)

// Categories перечисляет допустимые категории расходов и бюджетов.
var Categories = []string{
	"food",
	"transport",
	"shopping",
	"entertainment",
	"health",
	"bills",
	"education",
	"travel",
	"fitness",
	"pets",
	"gifts",
	"other",
}

// ValidCategory проверяет, входит ли категория в фиксированный список.
func ValidCategory(category string) bool {
	for _, known := range Categories {
		if known == category {
			return true
		}
	}
	return false
}

type UserProfile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     *string   `json:"full_name,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ShareSettings struct {
	AllowView   bool `json:"allow_view"`
	AllowEdit   bool `json:"allow_edit"`
	AllowDelete bool `json:"allow_delete"`
}

type ExpenseProfile struct {
	ID                uuid.UUID      `json:"id"`
	UserID            uuid.UUID      `json:"user_id"`
	Name              string         `json:"name"`
	Type              ProfileType    `json:"type"`
	Currency          string         `json:"currency"`
	BalanceCents      int64          `json:"balance_cents"`
	MonthlySpentCents int64          `json:"monthly_spent_cents"`
	IsShared          bool           `json:"is_shared"`
	ShareCode         *string        `json:"share_code,omitempty"`
	ShareSettings     *ShareSettings `json:"share_settings,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type Expense struct {
	ID            uuid.UUID     `json:"id"`
	ProfileID     uuid.UUID     `json:"profile_id"`
	UserID        uuid.UUID     `json:"user_id"`
	AmountCents   int64         `json:"amount_cents"`
	Category      string        `json:"category"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Description   *string       `json:"description,omitempty"`
	ExpenseDate   time.Time     `json:"expense_date"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Budget struct {
	ID             uuid.UUID    `json:"id"`
	ProfileID      uuid.UUID    `json:"profile_id"`
	Category       string       `json:"category"`
	AmountCents    int64        `json:"amount_cents"`
	Period         BudgetPeriod `json:"period"`
	AlertThreshold int          `json:"alert_threshold"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        *time.Time   `json:"end_date,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type Permissions struct {
	View   bool `json:"view"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
	Invite bool `json:"invite"`
}

// DefaultMemberPermissions возвращает права участника по умолчанию.
func DefaultMemberPermissions() Permissions {
	return Permissions{View: true}
}

// OwnerPermissions возвращает полный набор прав владельца.
func OwnerPermissions() Permissions {
	return Permissions{View: true, Edit: true, Delete: true, Invite: true}
}

type ProfileMember struct {
	ID          uuid.UUID    `json:"id"`
	ProfileID   uuid.UUID    `json:"profile_id"`
	UserID      uuid.UUID    `json:"user_id"`
	Role        Role         `json:"role"`
	Permissions Permissions  `json:"permissions"`
	Status      MemberStatus `json:"status"`
	InvitedBy   *uuid.UUID   `json:"invited_by,omitempty"`
	JoinedAt    time.Time    `json:"joined_at"`
}

type ProfileInvitation struct {
	ID             uuid.UUID        `json:"id"`
	ProfileID      uuid.UUID        `json:"profile_id"`
	InvitedEmail   string           `json:"invited_email"`
	InvitedBy      uuid.UUID        `json:"invited_by"`
	Role           Role             `json:"role"`
	Permissions    Permissions      `json:"permissions"`
	InvitationCode string           `json:"invitation_code"`
	Message        *string          `json:"message,omitempty"`
	Status         InvitationStatus `json:"status"`
	ExpiresAt      time.Time        `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}
