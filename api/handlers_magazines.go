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

// --- Public magazine endpoints ---

// ListMagazinesHandler returns every magazine issue.
// @Summary      List Magazine Issues
// @Tags         Magazines
// @Produce      json
// @Success      200  {array}  models.Magazine
// @Router       /magazines [get]
func ListMagazinesHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllMagazines())
}

// GetMagazineHandler returns one magazine issue by id.
// @Summary      Get a Magazine Issue
// @Tags         Magazines
// @Produce      json
// @Param        id path string true "Magazine ID."
// @Success      200  {object}  models.Magazine
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /magazines/{id} [get]
func GetMagazineHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	magazine, found := store.GetMagazineByID(c.Param("id"))
	if !found {
		utils.GinNotFound(c, fmt.Sprintf("Magazine with ID '%s' not found.", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, magazine)
}

// DownloadMagazineHandler gates magazine PDF access on the caller's
// subscription. Magazine downloads are not metered; only the permission
// and an active subscription are checked.
// @Summary      Download a Magazine PDF
// @Tags         Magazines
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Magazine ID."
// @Success      200  {object}  map[string]string "The pdf_url to fetch."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      402  {object}  utils.APIError "Payment Required: no active subscription covers this download."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /magazines/{id}/download [get]
func DownloadMagazineHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, _, ok := requireIdentity(c)
	if !ok {
		return
	}

	magazine, found := store.GetMagazineByID(c.Param("id"))
	if !found {
		utils.GinNotFound(c, fmt.Sprintf("Magazine with ID '%s' not found.", c.Param("id")))
		return
	}

	if err := store.AuthorizeMagazineDownload(userID, magazine); err != nil {
		switch {
		case errors.Is(err, db.ErrSubscriptionRequired):
			utils.GinPaymentRequired(c, "An active subscription is required to download this issue.")
		case errors.Is(err, db.ErrNotFound):
			utils.GinNotFound(c, "User profile not found.")
		default:
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to authorize download: %v", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"pdf_url": magazine.PDFURL})
}

// --- Admin magazine endpoints ---

// CreateMagazineHandler adds a new issue. DownloadAccess defaults to
// SUBSCRIBERS_ONLY when omitted.
// @Summary      Create a Magazine Issue (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        magazine body models.Magazine true "The issue to create."
// @Success      201  {object}  models.Magazine
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      403  {object}  utils.APIError "Forbidden: requires ADMIN role or above."
// @Router       /admin/magazines [post]
func CreateMagazineHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Magazine
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	created, err := store.AddMagazine(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create magazine: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateMagazineHandler replaces a magazine issue by id.
// @Summary      Update a Magazine Issue (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path string          true "Magazine ID."
// @Param        magazine body models.Magazine true "Replacement fields."
// @Success      200  {object}  models.Magazine
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/magazines/{id} [put]
func UpdateMagazineHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Magazine
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")

	if err := store.UpdateMagazine(req); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.GinNotFound(c, fmt.Sprintf("Magazine with ID '%s' not found.", req.ID))
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update magazine: %v", err))
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteMagazineHandler removes a magazine issue.
// @Summary      Delete a Magazine Issue (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Magazine ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/magazines/{id} [delete]
func DeleteMagazineHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteMagazine(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.GinNotFound(c, fmt.Sprintf("Magazine with ID '%s' not found.", c.Param("id")))
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to delete magazine: %v", err))
		return
	}
	c.Status(http.StatusNoContent)
}
