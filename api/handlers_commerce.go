package api

import (
	"errors"
	"fmt"
	"net/http"

	"agripress/config"
	"agripress/db"
	"agripress/models"
	"agripress/utils"

	"github.com/gin-gonic/gin"
)

// --- Products ---

// ListProductsHandler returns every store product.
// @Summary      List Store Products
// @Tags         Store
// @Produce      json
// @Success      200  {array}  models.Product
// @Router       /products [get]
func ListProductsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllProducts())
}

// GetProductHandler returns one product by id.
// @Summary      Get a Product
// @Tags         Store
// @Produce      json
// @Param        id path string true "Product ID."
// @Success      200  {object}  models.Product
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /products/{id} [get]
func GetProductHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	product, found := store.GetProductByID(c.Param("id"))
	if !found {
		utils.GinNotFound(c, fmt.Sprintf("Product with ID '%s' not found.", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProductHandler adds a product.
// @Summary      Create a Product (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        product body models.Product true "The product."
// @Success      201  {object}  models.Product
// @Router       /admin/products [post]
func CreateProductHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	created, err := store.AddProduct(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create product: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProductHandler replaces a product by id.
// @Summary      Update a Product (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id      path string         true "Product ID."
// @Param        product body models.Product true "Replacement fields."
// @Success      200  {object}  models.Product
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/products/{id} [put]
func UpdateProductHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateProduct(req); err != nil {
		respondStoreError(c, err, "Product", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteProductHandler removes a product.
// @Summary      Delete a Product (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Product ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/products/{id} [delete]
func DeleteProductHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteProduct(c.Param("id")); err != nil {
		respondStoreError(c, err, "Product", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Coupons ---

// ValidateCouponHandler checks a coupon code for the checkout flow.
// Inactive and expired coupons are reported as not found.
// @Summary      Validate a Coupon Code
// @Tags         Store
// @Produce      json
// @Security     BearerAuth
// @Param        code path string true "The coupon code."
// @Success      200  {object}  models.Coupon
// @Failure      404  {object}  utils.APIError "Not Found: unknown, inactive, or expired code."
// @Router       /coupons/{code} [get]
func ValidateCouponHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	coupon, found := store.GetCouponByCode(c.Param("code"))
	if !found {
		utils.GinNotFound(c, fmt.Sprintf("Coupon code '%s' is not valid.", c.Param("code")))
		return
	}
	c.JSON(http.StatusOK, coupon)
}

// ListCouponsHandler returns every coupon, active or not.
// @Summary      List Coupons (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Success      200  {array}  models.Coupon
// @Router       /admin/coupons [get]
func ListCouponsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllCoupons())
}

// CreateCouponHandler adds a coupon.
// @Summary      Create a Coupon (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        coupon body models.Coupon true "The coupon."
// @Success      201  {object}  models.Coupon
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Router       /admin/coupons [post]
func CreateCouponHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Coupon
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Code == "" {
		utils.GinBadRequest(c, "Coupon code is required.")
		return
	}
	created, err := store.AddCoupon(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create coupon: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateCouponHandler replaces a coupon by id.
// @Summary      Update a Coupon (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id     path string        true "Coupon ID."
// @Param        coupon body models.Coupon true "Replacement fields."
// @Success      200  {object}  models.Coupon
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/coupons/{id} [put]
func UpdateCouponHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Coupon
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateCoupon(req); err != nil {
		respondStoreError(c, err, "Coupon", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteCouponHandler removes a coupon.
// @Summary      Delete a Coupon (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Coupon ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/coupons/{id} [delete]
func DeleteCouponHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteCoupon(c.Param("id")); err != nil {
		respondStoreError(c, err, "Coupon", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Subscription plans (admin) ---

// CreatePlanHandler adds a subscription plan.
// @Summary      Create a Subscription Plan (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        plan body models.SubscriptionPlan true "The plan."
// @Success      201  {object}  models.SubscriptionPlan
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Router       /admin/plans [post]
func CreatePlanHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.SubscriptionPlan
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Name == "" || req.DurationMonths <= 0 {
		utils.GinBadRequest(c, "Plan name and a positive duration_months are required.")
		return
	}
	created, err := store.AddSubscriptionPlan(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create plan: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdatePlanHandler replaces a plan by id. Changing a plan does not alter
// entitlements already granted by completed payments.
// @Summary      Update a Subscription Plan (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id   path string                  true "Plan ID."
// @Param        plan body models.SubscriptionPlan true "Replacement fields."
// @Success      200  {object}  models.SubscriptionPlan
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/plans/{id} [put]
func UpdatePlanHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.SubscriptionPlan
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateSubscriptionPlan(req); err != nil {
		respondStoreError(c, err, "Plan", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeletePlanHandler removes a plan.
// @Summary      Delete a Subscription Plan (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Plan ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/plans/{id} [delete]
func DeletePlanHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteSubscriptionPlan(c.Param("id")); err != nil {
		respondStoreError(c, err, "Plan", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Payments ---

// CreatePaymentRequest defines the body for reporting a payment.
type CreatePaymentRequest struct {
	PlanID    string  `json:"plan_id" binding:"required"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}

// CreatePaymentHandler records a payment the caller claims to have made.
// It enters the queue as PENDING until an admin verifies or rejects it.
// @Summary      Report a Subscription Payment
// @Description  Records a payment against a plan. The payment stays PENDING until an admin verifies it;
// @Description  only verification grants the subscription.
// @Tags         Store
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payment body CreatePaymentRequest true "The payment details."
// @Success      201  {object}  models.PaymentRecord
// @Failure      400  {object}  utils.APIError "Bad Request: missing plan_id or unknown plan."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Router       /payments [post]
func CreatePaymentHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, email, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if _, found := store.GetPlanByID(req.PlanID); !found {
		utils.GinBadRequest(c, fmt.Sprintf("Unknown plan '%s'.", req.PlanID))
		return
	}

	created, err := store.AddPayment(models.PaymentRecord{
		UserID:    userID,
		PlanID:    req.PlanID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to record payment: %v", err))
		return
	}

	// Notify admins that a payment is waiting, and acknowledge to the user.
	store.AddNotification(models.Notification{
		Title: "Payment awaiting verification",
		Body:  fmt.Sprintf("Payment %s from %s needs review.", created.ID, email),
	})
	sendTemplatedEmail(store, cfg, email, "payment_received",
		"We received your payment report",
		"Your payment has been recorded and is awaiting verification.")

	c.JSON(http.StatusCreated, created)
}

// ListMyPaymentsHandler returns the caller's payment history.
// @Summary      List My Payments
// @Tags         Store
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.PaymentRecord
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Router       /payments/mine [get]
func ListMyPaymentsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.GetPaymentsByUser(userID))
}

// ListPaymentsHandler returns every payment for the admin review queue.
// @Summary      List All Payments (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Success      200  {array}  models.PaymentRecord
// @Router       /admin/payments [get]
func ListPaymentsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllPayments())
}

// VerifyPaymentHandler completes a payment and grants the subscription.
// @Summary      Verify a Payment (Admin)
// @Description  Marks the payment COMPLETED and grants the purchased plan's entitlements to the payer
// @Description  in the same operation. Verifying a payment that is not PENDING changes nothing.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Payment ID."
// @Success      200  {object}  models.PaymentRecord
// @Failure      404  {object}  utils.APIError "Not Found: unknown payment ID."
// @Failure      409  {object}  utils.APIError "Conflict: the payer's account or the plan no longer exists; the payment stays PENDING."
// @Router       /admin/payments/{id}/verify [post]
func VerifyPaymentHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	verified, granted, err := store.VerifyPayment(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			utils.GinNotFound(c, fmt.Sprintf("Payment with ID '%s' not found.", c.Param("id")))
		case errors.Is(err, db.ErrPaymentUserMissing):
			utils.GinConflict(c, "The paying user no longer exists; payment left PENDING.")
		case errors.Is(err, db.ErrPaymentPlanMissing):
			utils.GinConflict(c, "The purchased plan no longer exists; payment left PENDING.")
		default:
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to verify payment: %v", err))
		}
		return
	}
	if !granted {
		// Already COMPLETED or REJECTED; the payer was notified the first time.
		c.JSON(http.StatusOK, verified)
		return
	}

	if user, found := store.GetUserByID(verified.UserID); found {
		sendTemplatedEmail(store, cfg, user.Email, "payment_confirmed",
			"Your subscription is active",
			"Your payment has been verified and your subscription is now active.")
		store.AddNotification(models.Notification{
			UserID: user.ID,
			Title:  "Subscription activated",
			Body:   "Your payment was verified and your subscription is now active.",
		})
	}

	c.JSON(http.StatusOK, verified)
}

// RejectPaymentHandler rejects a pending payment.
// @Summary      Reject a Payment (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Payment ID."
// @Success      200  {object}  models.PaymentRecord
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/payments/{id}/reject [post]
func RejectPaymentHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	rejected, err := store.RejectPayment(c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Payment", c.Param("id"))
		return
	}

	if user, found := store.GetUserByID(rejected.UserID); found {
		sendTemplatedEmail(store, cfg, user.Email, "payment_rejected",
			"Your payment could not be verified",
			"Your reported payment could not be verified. Please contact support.")
	}

	c.JSON(http.StatusOK, rejected)
}

// sendTemplatedEmail dispatches a simulated email, preferring the stored
// template for the given key and falling back to the provided subject and
// body when none exists.
func sendTemplatedEmail(store *db.Store, cfg *config.Config, to, templateKey, fallbackSubject, fallbackBody string) {
	subject, body := fallbackSubject, fallbackBody
	if tpl, found := store.GetEmailTemplateByKey(templateKey); found {
		subject, body = tpl.Subject, tpl.Body
	}
	utils.SimulateEmailSend(to, subject, body, cfg.DispatchDelay)
}
