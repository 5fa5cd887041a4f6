package db

import (
	"testing"

	"agripress/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddArticle_Defaults(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddArticle(models.Article{
		Title:      "Soil health in rotation farming",
		AuthorID:   "u1",
		AuthorName: "Asha",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusPending, created.Status, "New submissions enter the review queue")
	assert.Equal(t, models.TypeArticle, created.Type)
	assert.Equal(t, models.AccessFree, created.DownloadAccess)
	assert.False(t, created.SubmissionDate.IsZero())
}

func TestAddArticle_CallerStatusIgnored(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddArticle(models.Article{
		Title:  "Sneaky",
		Status: models.StatusPublished,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status,
		"A submission cannot publish itself")
}

func TestUpdateArticleStatus_Lifecycle(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddArticle(models.Article{Title: "Pending piece"})
	require.NoError(t, err)

	approved, err := s.UpdateArticleStatus(created.ID, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	published, err := s.UpdateArticleStatus(created.ID, models.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, published.Status)

	// No transition is terminal; anything can be moved anywhere.
	back, err := s.UpdateArticleStatus(created.ID, models.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, back.Status)

	_, err = s.UpdateArticleStatus("missing", models.StatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPublishedArticles_FiltersStatusAndType(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	a1, _ := s.AddArticle(models.Article{Title: "Article one", Type: models.TypeArticle})
	a2, _ := s.AddArticle(models.Article{Title: "Blog one", Type: models.TypeBlog})
	s.AddArticle(models.Article{Title: "Still pending", Type: models.TypeArticle})

	_, err := s.UpdateArticleStatus(a1.ID, models.StatusPublished)
	require.NoError(t, err)
	_, err = s.UpdateArticleStatus(a2.ID, models.StatusPublished)
	require.NoError(t, err)

	all := s.GetPublishedArticles("")
	assert.Len(t, all, 2)

	blogs := s.GetPublishedArticles(models.TypeBlog)
	require.Len(t, blogs, 1)
	assert.Equal(t, "Blog one", blogs[0].Title)
}

func TestSearchArticles(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	s.AddArticle(models.Article{Title: "Wheat yields under drought", AuthorName: "Asha Rao"})
	s.AddArticle(models.Article{Title: "Rice paddies", AuthorName: "Benoit"})
	s.AddArticle(models.Article{Title: "Maize storage", AuthorName: "Chitra"})

	byTitle := s.SearchArticles("WHEAT")
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Wheat yields under drought", byTitle[0].Title)

	byAuthor := s.SearchArticles("rao")
	require.Len(t, byAuthor, 1)

	assert.Len(t, s.SearchArticles(""), 3, "Empty query matches everything")
	assert.Empty(t, s.SearchArticles("quinoa"))
}

func TestUpdateArticle_PreservesAuthorAndDates(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddArticle(models.Article{Title: "Original", AuthorID: "u1", AuthorName: "Asha"})
	require.NoError(t, err)

	replacement := created
	replacement.Title = "Edited"
	replacement.AuthorID = "forged"
	replacement.ID = "forged"

	updated, err := s.UpdateArticle(created.ID, replacement)
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "u1", updated.AuthorID)
	assert.Equal(t, created.SubmissionDate.Unix(), updated.SubmissionDate.Unix())
}

func TestDeleteArticle(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddArticle(models.Article{Title: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteArticle(created.ID))
	_, found := s.GetArticleByID(created.ID)
	assert.False(t, found)

	assert.ErrorIs(t, s.DeleteArticle(created.ID), ErrNotFound)
}

func TestMagazineCRUD(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	created, err := s.AddMagazine(models.Magazine{Title: "AgriPress Monthly", Volume: 12, Issue: 3})
	require.NoError(t, err)
	assert.Equal(t, models.AccessSubscribersOnly, created.DownloadAccess,
		"Magazines default to subscriber-only downloads")

	created.Title = "AgriPress Quarterly"
	require.NoError(t, s.UpdateMagazine(created))

	got, found := s.GetMagazineByID(created.ID)
	require.True(t, found)
	assert.Equal(t, "AgriPress Quarterly", got.Title)

	require.NoError(t, s.DeleteMagazine(created.ID))
	assert.ErrorIs(t, s.DeleteMagazine(created.ID), ErrNotFound)
}

func TestStaticPages_BySlug(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.AddStaticPage(models.StaticPage{Slug: "about", Title: "About us"})
	require.NoError(t, err)

	page, found := s.GetPageBySlug("about")
	require.True(t, found)
	assert.Equal(t, "About us", page.Title)

	_, found = s.GetPageBySlug("missing")
	assert.False(t, found)
}

func TestEmailTemplates_ByKey(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.AddEmailTemplate(models.EmailTemplate{
		Key:     "payment_confirmed",
		Subject: "Welcome aboard",
		Body:    "Your subscription is live.",
	})
	require.NoError(t, err)

	tpl, found := s.GetEmailTemplateByKey("payment_confirmed")
	require.True(t, found)
	assert.Equal(t, "Welcome aboard", tpl.Subject)

	_, found = s.GetEmailTemplateByKey("missing_key")
	assert.False(t, found)
}
