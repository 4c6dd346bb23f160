package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User           UserRepository
	RefreshToken   RefreshTokenRepository
	Owner          OwnerRepository
	Connection     ConnectionRepository
	Plan           PlanRepository
	MonthlyPayment MonthlyPaymentRepository
	OtherPayment   OtherPaymentRepository
	Receipt        ReceiptRepository
	Setting        SettingRepository
	Notification   NotificationRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		RefreshToken:   NewRefreshTokenRepository(db),
		Owner:          NewOwnerRepository(db),
		Connection:     NewConnectionRepository(db),
		Plan:           NewPlanRepository(db),
		MonthlyPayment: NewMonthlyPaymentRepository(db),
		OtherPayment:   NewOtherPaymentRepository(db),
		Receipt:        NewReceiptRepository(db),
		Setting:        NewSettingRepository(db),
		Notification:   NewNotificationRepository(db),
	}
}

// ListQuery holds common pagination and filter parameters
type ListQuery struct {
	Page    int
	PerPage int
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with sane defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	return (q.Page - 1) * q.PerPage
}
