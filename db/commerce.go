package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"agripress/models"
	"agripress/utils"
)

// --- Products ---

func (s *Store) AddProduct(p models.Product) (models.Product, error) {
	p.ID = utils.GenerateDashlessUUID()
	p.CreationDate = time.Now().UTC()
	if err := addRecord(s, models.ColProducts, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProductByID(id string) (models.Product, bool) {
	return findRecord[models.Product](s, models.ColProducts, id)
}

func (s *Store) GetAllProducts() []models.Product {
	return Records[models.Product](s, models.ColProducts)
}

func (s *Store) UpdateProduct(p models.Product) error {
	return updateRecord(s, models.ColProducts, p)
}

func (s *Store) DeleteProduct(id string) error {
	return deleteRecord[models.Product](s, models.ColProducts, id)
}

// --- Coupons ---

func (s *Store) AddCoupon(c models.Coupon) (models.Coupon, error) {
	c.ID = utils.GenerateDashlessUUID()
	c.CreationDate = time.Now().UTC()
	if err := addRecord(s, models.ColCoupons, c); err != nil {
		return models.Coupon{}, err
	}
	log.Printf("INFO: Created coupon ID: %s, Code: %s", c.ID, c.Code)
	return c, nil
}

// GetCouponByCode retrieves an active coupon by its code (case-insensitive).
func (s *Store) GetCouponByCode(code string) (models.Coupon, bool) {
	for _, c := range s.GetAllCoupons() {
		if strings.EqualFold(c.Code, code) && c.Active {
			if !c.ExpiryDate.IsZero() && c.ExpiryDate.Before(time.Now().UTC()) {
				continue
			}
			return c, true
		}
	}
	return models.Coupon{}, false
}

func (s *Store) GetAllCoupons() []models.Coupon {
	return Records[models.Coupon](s, models.ColCoupons)
}

func (s *Store) UpdateCoupon(c models.Coupon) error {
	return updateRecord(s, models.ColCoupons, c)
}

func (s *Store) DeleteCoupon(id string) error {
	return deleteRecord[models.Coupon](s, models.ColCoupons, id)
}

// --- Subscription plans ---

func (s *Store) AddSubscriptionPlan(p models.SubscriptionPlan) (models.SubscriptionPlan, error) {
	p.ID = utils.GenerateDashlessUUID()
	if err := addRecord(s, models.ColPlans, p); err != nil {
		return models.SubscriptionPlan{}, err
	}
	return p, nil
}

func (s *Store) GetPlanByID(id string) (models.SubscriptionPlan, bool) {
	return findRecord[models.SubscriptionPlan](s, models.ColPlans, id)
}

func (s *Store) GetAllPlans() []models.SubscriptionPlan {
	return Records[models.SubscriptionPlan](s, models.ColPlans)
}

func (s *Store) UpdateSubscriptionPlan(p models.SubscriptionPlan) error {
	return updateRecord(s, models.ColPlans, p)
}

func (s *Store) DeleteSubscriptionPlan(id string) error {
	return deleteRecord[models.SubscriptionPlan](s, models.ColPlans, id)
}

// --- Payments ---

// AddPayment records a subscription purchase awaiting manual verification.
// Status always starts PENDING regardless of what the caller supplies.
func (s *Store) AddPayment(p models.PaymentRecord) (models.PaymentRecord, error) {
	p.ID = utils.GenerateDashlessUUID()
	p.Status = models.PaymentPending
	p.CreationDate = time.Now().UTC()
	p.VerifiedDate = time.Time{}
	if err := addRecord(s, models.ColPayments, p); err != nil {
		return models.PaymentRecord{}, err
	}
	log.Printf("INFO: Recorded payment ID: %s, User: %s, Plan: %s", p.ID, p.UserID, p.PlanID)
	return p, nil
}

func (s *Store) GetPaymentByID(id string) (models.PaymentRecord, bool) {
	return findRecord[models.PaymentRecord](s, models.ColPayments, id)
}

func (s *Store) GetAllPayments() []models.PaymentRecord {
	return Records[models.PaymentRecord](s, models.ColPayments)
}

// GetPaymentsByUser retrieves every payment recorded for a user.
func (s *Store) GetPaymentsByUser(userID string) []models.PaymentRecord {
	mine := make([]models.PaymentRecord, 0)
	for _, p := range s.GetAllPayments() {
		if p.UserID == userID {
			mine = append(mine, p)
		}
	}
	return mine
}

// VerifyPayment completes a PENDING payment and grants the purchased
// entitlement in one step under the store lock: the payment flips to
// COMPLETED and the user's subscription tier, expiry, limits, zeroed
// usage counters, and download permissions all come from the plan.
//
// Both the user and the plan are resolved before anything is mutated; if
// either lookup fails the payment stays PENDING and the matching sentinel
// error is returned. Verifying a record that is not PENDING is a no-op by
// contract; the returned flag reports whether the entitlement was actually
// granted, so callers can skip follow-up side effects on a no-op. An
// unknown payment id returns ErrNotFound.
func (s *Store) VerifyPayment(id string) (models.PaymentRecord, bool, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	payments, err := decodeLocked[models.PaymentRecord](s, models.ColPayments)
	if err != nil {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, err
	}

	payIdx := -1
	for i, p := range payments {
		if p.ID == id {
			payIdx = i
			break
		}
	}
	if payIdx == -1 {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, fmt.Errorf("payment '%s': %w", id, ErrNotFound)
	}
	if payments[payIdx].Status != models.PaymentPending {
		payment := payments[payIdx]
		s.mu.Unlock()
		log.Printf("INFO: VerifyPayment %s: status is %s, nothing to do", id, payment.Status)
		return payment, false, nil
	}

	users, err := decodeLocked[models.User](s, models.ColUsers)
	if err != nil {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, err
	}
	userIdx := -1
	for i, u := range users {
		if u.ID == payments[payIdx].UserID {
			userIdx = i
			break
		}
	}
	if userIdx == -1 {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, fmt.Errorf("payment '%s': %w", id, ErrPaymentUserMissing)
	}

	plans, err := decodeLocked[models.SubscriptionPlan](s, models.ColPlans)
	if err != nil {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, err
	}
	var plan models.SubscriptionPlan
	planFound := false
	for _, pl := range plans {
		if pl.ID == payments[payIdx].PlanID {
			plan = pl
			planFound = true
			break
		}
	}
	if !planFound {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, fmt.Errorf("payment '%s': %w", id, ErrPaymentPlanMissing)
	}

	// Both lookups resolved; now mutate payment and user together.
	payments[payIdx].Status = models.PaymentCompleted
	payments[payIdx].VerifiedDate = now

	users[userIdx].SubscriptionTier = plan.Name
	users[userIdx].SubscriptionExpiry = now.AddDate(0, plan.DurationMonths, 0)
	users[userIdx].ArticleLimit = plan.ArticleLimit
	users[userIdx].BlogLimit = plan.BlogLimit
	users[userIdx].ArticleUsage = 0
	users[userIdx].BlogUsage = 0
	users[userIdx].Permissions = models.Permissions{
		CanDownloadArticles:  true,
		CanDownloadBlogs:     true,
		CanDownloadMagazines: true,
	}
	users[userIdx].LastModifiedDate = now

	paymentSnapshot, err := storeLocked(s, models.ColPayments, payments)
	if err != nil {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, err
	}
	userSnapshot, err := storeLocked(s, models.ColUsers, users)
	if err != nil {
		s.mu.Unlock()
		return models.PaymentRecord{}, false, err
	}
	verified := payments[payIdx]
	s.mu.Unlock()

	s.bus.publish(models.ColPayments, paymentSnapshot)
	s.bus.publish(models.ColUsers, userSnapshot)
	s.requestSave()

	log.Printf("INFO: Payment %s verified. User %s granted tier '%s' until %s",
		id, verified.UserID, plan.Name, users[userIdx].SubscriptionExpiry.Format(time.RFC3339))
	return verified, true, nil
}

// RejectPayment moves a PENDING payment to REJECTED without touching the
// user. Rejecting a record that is not PENDING is a no-op by the same
// contract as VerifyPayment.
func (s *Store) RejectPayment(id string) (models.PaymentRecord, error) {
	var result models.PaymentRecord
	err := mutate(s, models.ColPayments, func(payments []models.PaymentRecord) ([]models.PaymentRecord, error) {
		for i, p := range payments {
			if p.ID == id {
				if p.Status == models.PaymentPending {
					payments[i].Status = models.PaymentRejected
				}
				result = payments[i]
				return payments, nil
			}
		}
		return nil, fmt.Errorf("payment '%s': %w", id, ErrNotFound)
	})
	if err != nil {
		return models.PaymentRecord{}, err
	}
	log.Printf("INFO: Payment %s status: %s", id, result.Status)
	return result, nil
}

// --- Inquiries ---

func (s *Store) AddInquiry(i models.Inquiry) (models.Inquiry, error) {
	i.ID = utils.GenerateDashlessUUID()
	i.CreationDate = time.Now().UTC()
	i.Resolved = false
	if err := addRecord(s, models.ColInquiries, i); err != nil {
		return models.Inquiry{}, err
	}
	return i, nil
}

func (s *Store) GetAllInquiries() []models.Inquiry {
	return Records[models.Inquiry](s, models.ColInquiries)
}

func (s *Store) UpdateInquiry(i models.Inquiry) error {
	return updateRecord(s, models.ColInquiries, i)
}

func (s *Store) DeleteInquiry(id string) error {
	return deleteRecord[models.Inquiry](s, models.ColInquiries, id)
}

// --- Notifications ---

func (s *Store) AddNotification(n models.Notification) (models.Notification, error) {
	n.ID = utils.GenerateDashlessUUID()
	n.CreationDate = time.Now().UTC()
	n.Read = false
	if err := addRecord(s, models.ColNotifications, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// GetNotificationsForUser retrieves a user's notifications plus admin
// broadcasts (empty user id) when includeBroadcast is set.
func (s *Store) GetNotificationsForUser(userID string, includeBroadcast bool) []models.Notification {
	out := make([]models.Notification, 0)
	for _, n := range Records[models.Notification](s, models.ColNotifications) {
		if n.UserID == userID || (includeBroadcast && n.UserID == "") {
			out = append(out, n)
		}
	}
	return out
}

// MarkNotificationRead flags a notification as read. Returns ErrNotFound
// for an unknown id.
func (s *Store) MarkNotificationRead(id string) error {
	return mutate(s, models.ColNotifications, func(items []models.Notification) ([]models.Notification, error) {
		for i, n := range items {
			if n.ID == id {
				items[i].Read = true
				return items, nil
			}
		}
		return nil, fmt.Errorf("notification '%s': %w", id, ErrNotFound)
	})
}

func (s *Store) DeleteNotification(id string) error {
	return deleteRecord[models.Notification](s, models.ColNotifications, id)
}

// --- Site settings ---

// defaultSettings is seeded on first access so the singleton always exists.
func defaultSettings() models.SiteSettings {
	return models.SiteSettings{
		ID:       utils.GenerateDashlessUUID(),
		SiteName: "AgriPress",
		Navigation: []models.NavItem{
			{Label: "Home", Path: "/"},
			{Label: "Articles", Path: "/articles"},
			{Label: "Magazines", Path: "/magazines"},
			{Label: "Store", Path: "/store"},
			{Label: "Contact", Path: "/contact"},
		},
		HomepageLayout: []string{"hero", "latest_articles", "magazines", "news", "plans"},
	}
}

// GetSettings returns the singleton settings record, seeding the default
// on first access. Seeding re-checks under the write lock so two first
// readers cannot both insert.
func (s *Store) GetSettings() (models.SiteSettings, error) {
	settings := Records[models.SiteSettings](s, models.ColSettings)
	if len(settings) > 0 {
		return settings[0], nil
	}

	var result models.SiteSettings
	seeded := false
	err := mutate(s, models.ColSettings, func(items []models.SiteSettings) ([]models.SiteSettings, error) {
		if len(items) > 0 {
			result = items[0]
			return items, nil
		}
		result = defaultSettings()
		seeded = true
		return []models.SiteSettings{result}, nil
	})
	if err != nil {
		return models.SiteSettings{}, err
	}
	if seeded {
		log.Printf("INFO: Seeded default site settings (ID: %s)", result.ID)
	}
	return result, nil
}

// UpdateSettings replaces the singleton settings record, preserving its id.
// The id lookup and the write happen in one step under the store lock, so
// concurrent updates cannot lose each other's record.
func (s *Store) UpdateSettings(updated models.SiteSettings) (models.SiteSettings, error) {
	err := mutate(s, models.ColSettings, func(items []models.SiteSettings) ([]models.SiteSettings, error) {
		if len(items) > 0 {
			updated.ID = items[0].ID
		} else if updated.ID == "" {
			updated.ID = utils.GenerateDashlessUUID()
		}
		return []models.SiteSettings{updated}, nil
	})
	if err != nil {
		return models.SiteSettings{}, err
	}
	log.Printf("INFO: Updated site settings")
	return updated, nil
}
