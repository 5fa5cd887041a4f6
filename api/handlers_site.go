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

// Public read endpoints for site furniture: news, the editorial board,
// leadership, static pages, subscription plans, and the settings singleton.
// The matching admin CRUD lives further down.

// ListNewsHandler returns every news item.
// @Summary      List News
// @Tags         Site
// @Produce      json
// @Success      200  {array}  models.NewsItem
// @Router       /news [get]
func ListNewsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllNews())
}

// ListEditorialBoardHandler returns the editorial board roster.
// @Summary      List the Editorial Board
// @Tags         Site
// @Produce      json
// @Success      200  {array}  models.EditorialMember
// @Router       /editorial-board [get]
func ListEditorialBoardHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetEditorialBoard())
}

// ListLeadershipHandler returns the leadership roster.
// @Summary      List Leadership
// @Tags         Site
// @Produce      json
// @Success      200  {array}  models.LeadershipMember
// @Router       /leadership [get]
func ListLeadershipHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetLeadership())
}

// GetPageHandler returns a static page by slug.
// @Summary      Get a Static Page
// @Tags         Site
// @Produce      json
// @Param        slug path string true "Page slug, e.g. 'about'."
// @Success      200  {object}  models.StaticPage
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /pages/{slug} [get]
func GetPageHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	page, found := store.GetPageBySlug(c.Param("slug"))
	if !found {
		utils.GinNotFound(c, fmt.Sprintf("Page '%s' not found.", c.Param("slug")))
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListPlansHandler returns the purchasable subscription plans.
// @Summary      List Subscription Plans
// @Tags         Site
// @Produce      json
// @Success      200  {array}  models.SubscriptionPlan
// @Router       /plans [get]
func ListPlansHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllPlans())
}

// GetSettingsHandler returns the site settings singleton, seeding the
// default record on first access.
// @Summary      Get Site Settings
// @Tags         Site
// @Produce      json
// @Success      200  {object}  models.SiteSettings
// @Router       /settings [get]
func GetSettingsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	settings, err := store.GetSettings()
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to load settings: %v", err))
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SubmitInquiryRequest defines the contact-form body.
type SubmitInquiryRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

// SubmitInquiryHandler records a contact-form submission and raises an
// admin notification for it.
// @Summary      Submit a Contact Inquiry
// @Tags         Site
// @Accept       json
// @Produce      json
// @Param        inquiry body SubmitInquiryRequest true "The inquiry."
// @Success      201  {object}  models.Inquiry
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Router       /inquiries [post]
func SubmitInquiryHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req SubmitInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	created, err := store.AddInquiry(models.Inquiry{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to record inquiry: %v", err))
		return
	}

	// Broadcast to admins; an empty user id marks it as such.
	if _, err := store.AddNotification(models.Notification{
		Title: "New contact inquiry",
		Body:  fmt.Sprintf("From %s <%s>: %s", created.Name, created.Email, created.Subject),
	}); err != nil {
		// The inquiry itself was saved; only log the secondary failure.
	}

	c.JSON(http.StatusCreated, created)
}

// --- Admin CRUD for site furniture ---

// CreateNewsHandler adds a news item.
// @Summary      Create a News Item (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        news body models.NewsItem true "The news item."
// @Success      201  {object}  models.NewsItem
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Router       /admin/news [post]
func CreateNewsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.NewsItem
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	created, err := store.AddNewsItem(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create news item: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateNewsHandler replaces a news item by id.
// @Summary      Update a News Item (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id   path string          true "News item ID."
// @Param        news body models.NewsItem true "Replacement fields."
// @Success      200  {object}  models.NewsItem
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/news/{id} [put]
func UpdateNewsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.NewsItem
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateNewsItem(req); err != nil {
		respondStoreError(c, err, "News item", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteNewsHandler removes a news item.
// @Summary      Delete a News Item (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "News item ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/news/{id} [delete]
func DeleteNewsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteNewsItem(c.Param("id")); err != nil {
		respondStoreError(c, err, "News item", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateEditorialMemberHandler adds a board member.
// @Summary      Add an Editorial Board Member (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        member body models.EditorialMember true "The member."
// @Success      201  {object}  models.EditorialMember
// @Router       /admin/editorial-board [post]
func CreateEditorialMemberHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.EditorialMember
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	created, err := store.AddEditorialMember(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to add member: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateEditorialMemberHandler replaces a board member by id.
// @Summary      Update an Editorial Board Member (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id     path string                 true "Member ID."
// @Param        member body models.EditorialMember true "Replacement fields."
// @Success      200  {object}  models.EditorialMember
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/editorial-board/{id} [put]
func UpdateEditorialMemberHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.EditorialMember
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateEditorialMember(req); err != nil {
		respondStoreError(c, err, "Editorial member", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteEditorialMemberHandler removes a board member.
// @Summary      Remove an Editorial Board Member (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Member ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/editorial-board/{id} [delete]
func DeleteEditorialMemberHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteEditorialMember(c.Param("id")); err != nil {
		respondStoreError(c, err, "Editorial member", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateLeadershipMemberHandler adds a leadership member.
// @Summary      Add a Leadership Member (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        member body models.LeadershipMember true "The member."
// @Success      201  {object}  models.LeadershipMember
// @Router       /admin/leadership [post]
func CreateLeadershipMemberHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.LeadershipMember
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	created, err := store.AddLeadershipMember(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to add member: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateLeadershipMemberHandler replaces a leadership member by id.
// @Summary      Update a Leadership Member (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id     path string                  true "Member ID."
// @Param        member body models.LeadershipMember true "Replacement fields."
// @Success      200  {object}  models.LeadershipMember
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/leadership/{id} [put]
func UpdateLeadershipMemberHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.LeadershipMember
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateLeadershipMember(req); err != nil {
		respondStoreError(c, err, "Leadership member", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteLeadershipMemberHandler removes a leadership member.
// @Summary      Remove a Leadership Member (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Member ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/leadership/{id} [delete]
func DeleteLeadershipMemberHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteLeadershipMember(c.Param("id")); err != nil {
		respondStoreError(c, err, "Leadership member", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateStaticPageHandler adds a static page.
// @Summary      Create a Static Page (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        page body models.StaticPage true "The page."
// @Success      201  {object}  models.StaticPage
// @Router       /admin/pages [post]
func CreateStaticPageHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.StaticPage
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Slug == "" {
		utils.GinBadRequest(c, "Page slug is required.")
		return
	}
	created, err := store.AddStaticPage(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create page: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListStaticPagesHandler returns every static page.
// @Summary      List Static Pages (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Success      200  {array}  models.StaticPage
// @Router       /admin/pages [get]
func ListStaticPagesHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllPages())
}

// UpdateStaticPageHandler replaces a static page by id.
// @Summary      Update a Static Page (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id   path string            true "Page ID."
// @Param        page body models.StaticPage true "Replacement fields."
// @Success      200  {object}  models.StaticPage
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/pages/{id} [put]
func UpdateStaticPageHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.StaticPage
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateStaticPage(req); err != nil {
		respondStoreError(c, err, "Page", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteStaticPageHandler removes a static page.
// @Summary      Delete a Static Page (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Page ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/pages/{id} [delete]
func DeleteStaticPageHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteStaticPage(c.Param("id")); err != nil {
		respondStoreError(c, err, "Page", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// respondStoreError maps a store error to the matching HTTP response.
func respondStoreError(c *gin.Context, err error, kind, id string) {
	if errors.Is(err, db.ErrNotFound) {
		utils.GinNotFound(c, fmt.Sprintf("%s with ID '%s' not found.", kind, id))
		return
	}
	utils.GinInternalServerError(c, fmt.Sprintf("Operation failed: %v", err))
}
