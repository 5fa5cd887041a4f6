package db

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"agripress/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paymentFixture registers a user, creates a plan, and records a pending
// payment linking the two.
func paymentFixture(t *testing.T, s *Store) (models.User, models.SubscriptionPlan, models.PaymentRecord) {
	t.Helper()

	user, err := s.Register("Payer", "payer@x.com", "secret12")
	require.NoError(t, err)

	plan, err := s.AddSubscriptionPlan(models.SubscriptionPlan{
		Name:           "Annual",
		Price:          499,
		DurationMonths: 12,
		ArticleLimit:   50,
		BlogLimit:      20,
	})
	require.NoError(t, err)

	payment, err := s.AddPayment(models.PaymentRecord{
		UserID: user.ID,
		PlanID: plan.ID,
		Amount: 499,
		Method: "UPI",
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentPending, payment.Status)

	return user, plan, payment
}

func TestAddPayment_AlwaysStartsPending(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	payment, err := s.AddPayment(models.PaymentRecord{
		UserID: "u1",
		PlanID: "p1",
		Status: models.PaymentCompleted, // Caller cannot pre-complete
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.True(t, payment.VerifiedDate.IsZero())
}

func TestVerifyPayment_GrantsSubscription(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	user, plan, payment := paymentFixture(t, s)

	verified, granted, err := s.VerifyPayment(payment.ID)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, models.PaymentCompleted, verified.Status)
	assert.False(t, verified.VerifiedDate.IsZero())

	after, found := s.GetUserByID(user.ID)
	require.True(t, found)
	assert.Equal(t, plan.Name, after.SubscriptionTier)
	assert.Equal(t, plan.ArticleLimit, after.ArticleLimit)
	assert.Equal(t, plan.BlogLimit, after.BlogLimit)
	assert.Equal(t, 0, after.ArticleUsage)
	assert.Equal(t, 0, after.BlogUsage)
	assert.True(t, after.Permissions.CanDownloadArticles)
	assert.True(t, after.Permissions.CanDownloadBlogs)
	assert.True(t, after.Permissions.CanDownloadMagazines)
	assert.True(t, after.HasActiveSubscription())

	expectedExpiry := time.Now().UTC().AddDate(0, plan.DurationMonths, 0)
	assert.WithinDuration(t, expectedExpiry, after.SubscriptionExpiry, time.Minute)
}

func TestVerifyPayment_ResetsUsageCounters(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	user, _, payment := paymentFixture(t, s)

	// Simulate leftover usage from a previous subscription period.
	stale, _ := s.GetUserByID(user.ID)
	stale.ArticleUsage = 42
	stale.BlogUsage = 7
	require.NoError(t, Put(s, models.ColUsers, []models.User{stale}))

	_, _, err := s.VerifyPayment(payment.ID)
	require.NoError(t, err)

	after, _ := s.GetUserByID(user.ID)
	assert.Equal(t, 0, after.ArticleUsage)
	assert.Equal(t, 0, after.BlogUsage)
}

func TestVerifyPayment_NonPendingIsNoOp(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	user, _, payment := paymentFixture(t, s)

	first, granted, err := s.VerifyPayment(payment.ID)
	require.NoError(t, err)
	require.True(t, granted)

	// Second verify returns the record unchanged, reports that nothing was
	// granted, and does not extend the subscription.
	before, _ := s.GetUserByID(user.ID)
	second, granted, err := s.VerifyPayment(payment.ID)
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Equal(t, first.VerifiedDate.Unix(), second.VerifiedDate.Unix())

	after, _ := s.GetUserByID(user.ID)
	assert.Equal(t, before.SubscriptionExpiry, after.SubscriptionExpiry)
}

func TestVerifyPayment_UnknownID(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, _, err := s.VerifyPayment("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyPayment_MissingUserLeavesPending(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	user, _, payment := paymentFixture(t, s)
	require.NoError(t, s.DeleteUser(user.ID))

	_, _, err := s.VerifyPayment(payment.ID)
	assert.ErrorIs(t, err, ErrPaymentUserMissing)

	after, found := s.GetPaymentByID(payment.ID)
	require.True(t, found)
	assert.Equal(t, models.PaymentPending, after.Status, "Failed verification must not consume the payment")
}

func TestVerifyPayment_MissingPlanLeavesPending(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	user, plan, payment := paymentFixture(t, s)
	require.NoError(t, s.DeleteSubscriptionPlan(plan.ID))

	_, _, err := s.VerifyPayment(payment.ID)
	assert.ErrorIs(t, err, ErrPaymentPlanMissing)

	after, _ := s.GetPaymentByID(payment.ID)
	assert.Equal(t, models.PaymentPending, after.Status)

	// The user gained nothing.
	u, _ := s.GetUserByID(user.ID)
	assert.Empty(t, u.SubscriptionTier)
	assert.False(t, u.HasActiveSubscription())
}

func TestRejectPayment(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	user, _, payment := paymentFixture(t, s)

	rejected, err := s.RejectPayment(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, rejected.Status)

	u, _ := s.GetUserByID(user.ID)
	assert.False(t, u.HasActiveSubscription(), "Rejection grants nothing")

	// Rejecting again is a no-op, and a rejected payment cannot be verified
	// into a subscription either.
	again, err := s.RejectPayment(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, again.Status)

	verified, granted, err := s.VerifyPayment(payment.ID)
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Equal(t, models.PaymentRejected, verified.Status)

	_, err = s.RejectPayment("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Coupons ---

func TestCoupons_AddLookupDelete(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddCoupon(models.Coupon{
		Code:         "AGRI50",
		DiscountType: "PERCENT",
		Value:        50,
		Active:       true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreationDate.IsZero())

	found, ok := s.GetCouponByCode("agri50")
	require.True(t, ok, "Code lookup is case-insensitive")
	assert.Equal(t, created.ID, found.ID)

	require.NoError(t, s.DeleteCoupon(created.ID))
	_, ok = s.GetCouponByCode("AGRI50")
	assert.False(t, ok)
	assert.ErrorIs(t, s.DeleteCoupon(created.ID), ErrNotFound)
}

func TestGetCouponByCode_SkipsInactiveAndExpired(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.AddCoupon(models.Coupon{Code: "INACTIVE", Active: false})
	require.NoError(t, err)
	_, err = s.AddCoupon(models.Coupon{
		Code:       "EXPIRED",
		Active:     true,
		ExpiryDate: time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	_, ok := s.GetCouponByCode("INACTIVE")
	assert.False(t, ok)
	_, ok = s.GetCouponByCode("EXPIRED")
	assert.False(t, ok)
}

// --- Notifications ---

func TestNotifications_UserAndBroadcastScoping(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.AddNotification(models.Notification{UserID: "u1", Title: "Yours"})
	require.NoError(t, err)
	_, err = s.AddNotification(models.Notification{UserID: "u2", Title: "Theirs"})
	require.NoError(t, err)
	broadcast, err := s.AddNotification(models.Notification{Title: "Everyone with a console"})
	require.NoError(t, err)

	plain := s.GetNotificationsForUser("u1", false)
	require.Len(t, plain, 1)
	assert.Equal(t, "Yours", plain[0].Title)

	admin := s.GetNotificationsForUser("u1", true)
	assert.Len(t, admin, 2, "Admins also see broadcasts")

	require.NoError(t, s.MarkNotificationRead(broadcast.ID))
	assert.ErrorIs(t, s.MarkNotificationRead("missing"), ErrNotFound)
}

// --- Settings singleton ---

func TestSettings_SeededOnFirstAccess(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	first, err := s.GetSettings()
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, first.Navigation)

	second, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "The singleton is seeded exactly once")

	assert.Len(t, Records[models.SiteSettings](s, models.ColSettings), 1)
}

func TestSettings_UpdatePreservesID(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	seeded, err := s.GetSettings()
	require.NoError(t, err)

	updated, err := s.UpdateSettings(models.SiteSettings{
		ID:       "forged",
		SiteName: "AgriPress Reborn",
	})
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, updated.ID)
	assert.Equal(t, "AgriPress Reborn", updated.SiteName)

	assert.Len(t, Records[models.SiteSettings](s, models.ColSettings), 1)
}

func TestSettings_ConcurrentUpdatesKeepSingleton(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	seeded, err := s.GetSettings()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.UpdateSettings(models.SiteSettings{
				SiteName: "AgriPress",
				Tagline:  fmt.Sprintf("edition %d", n),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Every writer saw the seeded id, and exactly one record survives.
	all := Records[models.SiteSettings](s, models.ColSettings)
	require.Len(t, all, 1)
	assert.Equal(t, seeded.ID, all[0].ID)
	assert.Regexp(t, `^edition \d$`, all[0].Tagline)
}

// --- Inquiries ---

func TestInquiries_Lifecycle(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddInquiry(models.Inquiry{
		Name:    "Curious Farmer",
		Email:   "farm@x.com",
		Message: "Do you cover drip irrigation?",
	})
	require.NoError(t, err)
	assert.False(t, created.Resolved)

	created.Resolved = true
	require.NoError(t, s.UpdateInquiry(created))

	all := s.GetAllInquiries()
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved)

	require.NoError(t, s.DeleteInquiry(created.ID))
	assert.Empty(t, s.GetAllInquiries())
}
