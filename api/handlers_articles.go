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

// --- Public article endpoints ---

// ListPublishedArticlesHandler returns published articles for the public site.
// @Summary      List Published Articles
// @Description  Returns every PUBLISHED article, newest first is not guaranteed; the client sorts as needed.
// @Description  *   `type`: restrict to `ARTICLE` or `BLOG`.
// @Description  *   `q`: case-insensitive substring match against the title or author name.
// @Tags         Articles
// @Produce      json
// @Param        type query string false "Content type filter." Enums(ARTICLE, BLOG)
// @Param        q    query string false "Search text matched against title and author name."
// @Success      200  {array}   models.Article
// @Failure      400  {object}  utils.APIError "Bad Request: unknown content type."
// @Router       /articles [get]
func ListPublishedArticlesHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	contentType := models.ContentType(c.Query("type"))
	if contentType != "" && contentType != models.TypeArticle && contentType != models.TypeBlog {
		utils.GinBadRequest(c, fmt.Sprintf("Unknown content type '%s'. Expected ARTICLE or BLOG.", contentType))
		return
	}

	search := c.Query("q")
	if search == "" {
		c.JSON(http.StatusOK, store.GetPublishedArticles(contentType))
		return
	}

	matches := make([]models.Article, 0)
	for _, a := range store.SearchArticles(search) {
		if a.Status != models.StatusPublished {
			continue
		}
		if contentType != "" && a.Type != contentType {
			continue
		}
		matches = append(matches, a)
	}
	c.JSON(http.StatusOK, matches)
}

// GetPublishedArticleHandler returns one published article by id. Articles
// in any other status are invisible here, including to their author.
// @Summary      Get a Published Article
// @Tags         Articles
// @Produce      json
// @Param        id path string true "Article ID."
// @Success      200  {object}  models.Article
// @Failure      404  {object}  utils.APIError "Not Found: no published article with this ID."
// @Router       /articles/{id} [get]
func GetPublishedArticleHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	article, found := store.GetArticleByID(c.Param("id"))
	if !found || article.Status != models.StatusPublished {
		utils.GinNotFound(c, fmt.Sprintf("Article with ID '%s' not found.", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, article)
}

// --- Authenticated article endpoints ---

// SubmitArticleRequest defines the body for submitting an article or blog
// post for editorial review.
type SubmitArticleRequest struct {
	Type           models.ContentType    `json:"type"`
	Title          string                `json:"title" binding:"required"`
	Abstract       string                `json:"abstract"`
	Body           string                `json:"body"`
	DownloadAccess models.DownloadAccess `json:"download_access"`
	CoverImageURL  string                `json:"cover_image_url"`
	PDFURL         string                `json:"pdf_url"`
	Tags           []string              `json:"tags"`
}

// SubmitArticleHandler submits content for review. The new record always
// enters the queue as PENDING with the caller as author, regardless of
// what the body claims.
// @Summary      Submit an Article or Blog Post
// @Description  Creates a new article in PENDING status awaiting editorial review. The author is always the caller.
// @Tags         Articles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        article body SubmitArticleRequest true "The content to submit."
// @Success      201  {object}  models.Article "Submitted. Status is PENDING."
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      500  {object}  utils.APIError "Internal Server Error."
// @Router       /articles [post]
func SubmitArticleHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, email, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req SubmitArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	author, err := store.SyncUser(userID, email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to resolve profile: %v", err))
		return
	}

	created, err := store.AddArticle(models.Article{
		Type:           req.Type,
		Title:          req.Title,
		Abstract:       req.Abstract,
		Body:           req.Body,
		AuthorID:       author.ID,
		AuthorName:     author.Name,
		DownloadAccess: req.DownloadAccess,
		CoverImageURL:  req.CoverImageURL,
		PDFURL:         req.PDFURL,
		Tags:           req.Tags,
	})
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to submit article: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListMyArticlesHandler returns the caller's own submissions in every status.
// @Summary      List My Submissions
// @Tags         Articles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Article
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Router       /articles/mine [get]
func ListMyArticlesHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.GetArticlesByAuthor(userID))
}

// DownloadArticleHandler gates PDF access on the caller's subscription.
// @Summary      Download an Article PDF
// @Description  Returns the article's PDF location when the caller is entitled to it.
// @Description  FREE articles are open to any authenticated user. SUBSCRIBERS_ONLY articles require an
// @Description  active subscription, the matching per-type download permission, and remaining quota.
// @Description  Each successful subscriber download consumes one unit of the matching usage counter.
// @Tags         Articles
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Article ID."
// @Success      200  {object}  map[string]string "The pdf_url to fetch."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      402  {object}  utils.APIError "Payment Required: no active subscription covers this download."
// @Failure      403  {object}  utils.APIError "Forbidden: the download quota for this content type is exhausted."
// @Failure      404  {object}  utils.APIError "Not Found: no published article with this ID."
// @Router       /articles/{id}/download [get]
func DownloadArticleHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, _, ok := requireIdentity(c)
	if !ok {
		return
	}

	article, found := store.GetArticleByID(c.Param("id"))
	if !found || article.Status != models.StatusPublished {
		utils.GinNotFound(c, fmt.Sprintf("Article with ID '%s' not found.", c.Param("id")))
		return
	}

	if err := store.AuthorizeArticleDownload(userID, article); err != nil {
		switch {
		case errors.Is(err, db.ErrSubscriptionRequired):
			utils.GinPaymentRequired(c, "An active subscription is required to download this content.")
		case errors.Is(err, db.ErrDownloadLimitReached):
			utils.GinForbidden(c, "Your download limit for this content type has been reached.")
		case errors.Is(err, db.ErrNotFound):
			utils.GinNotFound(c, "User profile not found.")
		default:
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to authorize download: %v", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"pdf_url": article.PDFURL})
}

// --- Editorial article endpoints ---

// ListAllArticlesHandler returns every article in every status.
// @Summary      List All Articles (Editorial)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Article
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      403  {object}  utils.APIError "Forbidden: requires EDITOR role or above."
// @Router       /admin/articles [get]
func ListAllArticlesHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllArticles())
}

// UpdateArticleHandler replaces an article's editable fields.
// @Summary      Update an Article (Editorial)
// @Description  Replaces the article's content and metadata. The ID, author, and submission date are preserved.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string         true "Article ID."
// @Param        article body models.Article true "Replacement article fields."
// @Success      200  {object}  models.Article
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      403  {object}  utils.APIError "Forbidden: requires EDITOR role or above."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/articles/{id} [put]
func UpdateArticleHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Article
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	updated, err := store.UpdateArticle(c.Param("id"), req)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.GinNotFound(c, fmt.Sprintf("Article with ID '%s' not found.", c.Param("id")))
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update article: %v", err))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UpdateArticleStatusRequest carries the new editorial status.
type UpdateArticleStatusRequest struct {
	Status models.ContentStatus `json:"status" binding:"required"`
}

// UpdateArticleStatusHandler moves an article through the editorial
// lifecycle. Any status may be set from any other.
// @Summary      Set an Article's Status (Editorial)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path string                     true "Article ID."
// @Param        status body UpdateArticleStatusRequest true "New status: DRAFT, PENDING, APPROVED, REJECTED, PUBLISHED, or SCHEDULED."
// @Success      200  {object}  models.Article
// @Failure      400  {object}  utils.APIError "Bad Request: unknown status value."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      403  {object}  utils.APIError "Forbidden: requires EDITOR role or above."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/articles/{id}/status [patch]
func UpdateArticleStatusHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req UpdateArticleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	switch req.Status {
	case models.StatusDraft, models.StatusPending, models.StatusApproved,
		models.StatusRejected, models.StatusPublished, models.StatusScheduled:
	default:
		utils.GinBadRequest(c, fmt.Sprintf("Unknown status '%s'.", req.Status))
		return
	}

	updated, err := store.UpdateArticleStatus(c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.GinNotFound(c, fmt.Sprintf("Article with ID '%s' not found.", c.Param("id")))
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update status: %v", err))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteArticleHandler removes an article permanently.
// @Summary      Delete an Article (Editorial)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Article ID."
// @Success      204  "Deleted."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      403  {object}  utils.APIError "Forbidden: requires EDITOR role or above."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/articles/{id} [delete]
func DeleteArticleHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteArticle(c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.GinNotFound(c, fmt.Sprintf("Article with ID '%s' not found.", c.Param("id")))
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to delete article: %v", err))
		return
	}
	c.Status(http.StatusNoContent)
}
