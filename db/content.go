package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"agripress/models"
	"agripress/utils"
)

// ider exposes a record's id for the generic CRUD helpers. Every entity
// record in models satisfies it.
type ider interface{ RecordID() string }

// addRecord appends item to a collection.
func addRecord[T ider](s *Store, collection string, item T) error {
	return mutate(s, collection, func(items []T) ([]T, error) {
		return append(items, item), nil
	})
}

// updateRecord replaces the record whose id matches updated. Returns
// ErrNotFound when no record carries that id; there are no silent no-ops.
func updateRecord[T ider](s *Store, collection string, updated T) error {
	return mutate(s, collection, func(items []T) ([]T, error) {
		for i, item := range items {
			if item.RecordID() == updated.RecordID() {
				items[i] = updated
				return items, nil
			}
		}
		return nil, fmt.Errorf("%s '%s': %w", collection, updated.RecordID(), ErrNotFound)
	})
}

// deleteRecord removes the record with the given id. Returns ErrNotFound
// when no record carries that id.
func deleteRecord[T ider](s *Store, collection, id string) error {
	return mutate(s, collection, func(items []T) ([]T, error) {
		remaining := make([]T, 0, len(items))
		found := false
		for _, item := range items {
			if item.RecordID() == id {
				found = true
				continue
			}
			remaining = append(remaining, item)
		}
		if !found {
			return nil, fmt.Errorf("%s '%s': %w", collection, id, ErrNotFound)
		}
		return remaining, nil
	})
}

// findRecord returns the record with the given id.
func findRecord[T ider](s *Store, collection, id string) (T, bool) {
	var zero T
	for _, item := range Records[T](s, collection) {
		if item.RecordID() == id {
			return item, true
		}
	}
	return zero, false
}

// --- Articles ---

// AddArticle stamps a fresh id and submission timestamp and stores the
// article. A missing status defaults to PENDING (the submission path);
// admin creation passes PUBLISHED explicitly. A missing download access
// defaults to FREE.
func (s *Store) AddArticle(article models.Article) (models.Article, error) {
	article.ID = utils.GenerateDashlessUUID()
	now := time.Now().UTC()
	article.SubmissionDate = now
	article.LastModifiedDate = now
	if article.Type == "" {
		article.Type = models.TypeArticle
	}
	if article.Status == "" {
		article.Status = models.StatusPending
	}
	if article.DownloadAccess == "" {
		article.DownloadAccess = models.AccessFree
	}

	if err := addRecord(s, models.ColArticles, article); err != nil {
		return models.Article{}, err
	}
	log.Printf("INFO: Created article ID: %s, Type: %s, Status: %s", article.ID, article.Type, article.Status)
	return article, nil
}

// GetArticleByID retrieves an article by id.
func (s *Store) GetArticleByID(id string) (models.Article, bool) {
	return findRecord[models.Article](s, models.ColArticles, id)
}

// GetAllArticles retrieves every article regardless of status.
func (s *Store) GetAllArticles() []models.Article {
	return Records[models.Article](s, models.ColArticles)
}

// GetPublishedArticles retrieves PUBLISHED articles, optionally filtered
// by content type.
func (s *Store) GetPublishedArticles(contentType models.ContentType) []models.Article {
	published := make([]models.Article, 0)
	for _, a := range s.GetAllArticles() {
		if a.Status != models.StatusPublished {
			continue
		}
		if contentType != "" && a.Type != contentType {
			continue
		}
		published = append(published, a)
	}
	return published
}

// GetArticlesByAuthor retrieves every article submitted by the given user.
func (s *Store) GetArticlesByAuthor(authorID string) []models.Article {
	mine := make([]models.Article, 0)
	for _, a := range s.GetAllArticles() {
		if a.AuthorID == authorID {
			mine = append(mine, a)
		}
	}
	return mine
}

// SearchArticles returns every article whose title or author name contains
// the query, case-insensitively. All matches are returned, unranked; an
// empty query matches everything.
func (s *Store) SearchArticles(query string) []models.Article {
	q := strings.ToLower(query)
	matches := make([]models.Article, 0)
	for _, a := range s.GetAllArticles() {
		if q == "" ||
			strings.Contains(strings.ToLower(a.Title), q) ||
			strings.Contains(strings.ToLower(a.AuthorName), q) {
			matches = append(matches, a)
		}
	}
	return matches
}

// UpdateArticle replaces an article by id, preserving id, author, and
// submission date. Returns ErrNotFound for an unknown id.
func (s *Store) UpdateArticle(id string, updated models.Article) (models.Article, error) {
	var result models.Article
	err := mutate(s, models.ColArticles, func(articles []models.Article) ([]models.Article, error) {
		for i, a := range articles {
			if a.ID == id {
				updated.ID = a.ID
				updated.AuthorID = a.AuthorID
				updated.SubmissionDate = a.SubmissionDate
				updated.LastModifiedDate = time.Now().UTC()
				articles[i] = updated
				result = articles[i]
				return articles, nil
			}
		}
		return nil, fmt.Errorf("article '%s': %w", id, ErrNotFound)
	})
	if err != nil {
		return models.Article{}, err
	}
	log.Printf("INFO: Updated article ID: %s", id)
	return result, nil
}

// UpdateArticleStatus sets an article's lifecycle status. Transitions are
// unguarded: any status can be set to any other by an admin write, and no
// status is terminal. Returns ErrNotFound for an unknown id.
func (s *Store) UpdateArticleStatus(id string, status models.ContentStatus) (models.Article, error) {
	var result models.Article
	err := mutate(s, models.ColArticles, func(articles []models.Article) ([]models.Article, error) {
		for i, a := range articles {
			if a.ID == id {
				articles[i].Status = status
				articles[i].LastModifiedDate = time.Now().UTC()
				result = articles[i]
				return articles, nil
			}
		}
		return nil, fmt.Errorf("article '%s': %w", id, ErrNotFound)
	})
	if err != nil {
		return models.Article{}, err
	}
	log.Printf("INFO: Article %s status set to %s", id, status)
	return result, nil
}

// DeleteArticle removes an article by id. Returns ErrNotFound for an
// unknown id.
func (s *Store) DeleteArticle(id string) error {
	return deleteRecord[models.Article](s, models.ColArticles, id)
}

// --- Magazines ---

// AddMagazine stamps a fresh id and creation date and stores the issue.
func (s *Store) AddMagazine(m models.Magazine) (models.Magazine, error) {
	m.ID = utils.GenerateDashlessUUID()
	m.CreationDate = time.Now().UTC()
	if m.DownloadAccess == "" {
		m.DownloadAccess = models.AccessSubscribersOnly
	}
	if err := addRecord(s, models.ColMagazines, m); err != nil {
		return models.Magazine{}, err
	}
	log.Printf("INFO: Created magazine ID: %s (Vol %d Issue %d)", m.ID, m.Volume, m.Issue)
	return m, nil
}

func (s *Store) GetMagazineByID(id string) (models.Magazine, bool) {
	return findRecord[models.Magazine](s, models.ColMagazines, id)
}

func (s *Store) GetAllMagazines() []models.Magazine {
	return Records[models.Magazine](s, models.ColMagazines)
}

func (s *Store) UpdateMagazine(m models.Magazine) error {
	return updateRecord(s, models.ColMagazines, m)
}

func (s *Store) DeleteMagazine(id string) error {
	return deleteRecord[models.Magazine](s, models.ColMagazines, id)
}

// --- News ---

func (s *Store) AddNewsItem(n models.NewsItem) (models.NewsItem, error) {
	n.ID = utils.GenerateDashlessUUID()
	n.CreationDate = time.Now().UTC()
	if err := addRecord(s, models.ColNews, n); err != nil {
		return models.NewsItem{}, err
	}
	return n, nil
}

func (s *Store) GetAllNews() []models.NewsItem {
	return Records[models.NewsItem](s, models.ColNews)
}

func (s *Store) UpdateNewsItem(n models.NewsItem) error {
	return updateRecord(s, models.ColNews, n)
}

func (s *Store) DeleteNewsItem(id string) error {
	return deleteRecord[models.NewsItem](s, models.ColNews, id)
}

// --- Editorial board & leadership ---

func (s *Store) AddEditorialMember(m models.EditorialMember) (models.EditorialMember, error) {
	m.ID = utils.GenerateDashlessUUID()
	if err := addRecord(s, models.ColEditorialBoard, m); err != nil {
		return models.EditorialMember{}, err
	}
	return m, nil
}

func (s *Store) GetEditorialBoard() []models.EditorialMember {
	return Records[models.EditorialMember](s, models.ColEditorialBoard)
}

func (s *Store) UpdateEditorialMember(m models.EditorialMember) error {
	return updateRecord(s, models.ColEditorialBoard, m)
}

func (s *Store) DeleteEditorialMember(id string) error {
	return deleteRecord[models.EditorialMember](s, models.ColEditorialBoard, id)
}

func (s *Store) AddLeadershipMember(m models.LeadershipMember) (models.LeadershipMember, error) {
	m.ID = utils.GenerateDashlessUUID()
	if err := addRecord(s, models.ColLeadership, m); err != nil {
		return models.LeadershipMember{}, err
	}
	return m, nil
}

func (s *Store) GetLeadership() []models.LeadershipMember {
	return Records[models.LeadershipMember](s, models.ColLeadership)
}

func (s *Store) UpdateLeadershipMember(m models.LeadershipMember) error {
	return updateRecord(s, models.ColLeadership, m)
}

func (s *Store) DeleteLeadershipMember(id string) error {
	return deleteRecord[models.LeadershipMember](s, models.ColLeadership, id)
}

// --- Static pages ---

// AddStaticPage stores a new page. Slugs are not constrained to be unique;
// GetPageBySlug returns the first match.
func (s *Store) AddStaticPage(p models.StaticPage) (models.StaticPage, error) {
	p.ID = utils.GenerateDashlessUUID()
	p.LastModifiedDate = time.Now().UTC()
	if err := addRecord(s, models.ColPages, p); err != nil {
		return models.StaticPage{}, err
	}
	return p, nil
}

func (s *Store) GetPageBySlug(slug string) (models.StaticPage, bool) {
	for _, p := range Records[models.StaticPage](s, models.ColPages) {
		if strings.EqualFold(p.Slug, slug) {
			return p, true
		}
	}
	return models.StaticPage{}, false
}

func (s *Store) GetAllPages() []models.StaticPage {
	return Records[models.StaticPage](s, models.ColPages)
}

func (s *Store) UpdateStaticPage(p models.StaticPage) error {
	p.LastModifiedDate = time.Now().UTC()
	return updateRecord(s, models.ColPages, p)
}

func (s *Store) DeleteStaticPage(id string) error {
	return deleteRecord[models.StaticPage](s, models.ColPages, id)
}

// --- Email templates ---

func (s *Store) AddEmailTemplate(t models.EmailTemplate) (models.EmailTemplate, error) {
	t.ID = utils.GenerateDashlessUUID()
	if err := addRecord(s, models.ColEmailTemplates, t); err != nil {
		return models.EmailTemplate{}, err
	}
	return t, nil
}

// GetEmailTemplateByKey returns the first template with the given key.
func (s *Store) GetEmailTemplateByKey(key string) (models.EmailTemplate, bool) {
	for _, t := range Records[models.EmailTemplate](s, models.ColEmailTemplates) {
		if strings.EqualFold(t.Key, key) {
			return t, true
		}
	}
	return models.EmailTemplate{}, false
}

func (s *Store) GetAllEmailTemplates() []models.EmailTemplate {
	return Records[models.EmailTemplate](s, models.ColEmailTemplates)
}

func (s *Store) UpdateEmailTemplate(t models.EmailTemplate) error {
	return updateRecord(s, models.ColEmailTemplates, t)
}

func (s *Store) DeleteEmailTemplate(id string) error {
	return deleteRecord[models.EmailTemplate](s, models.ColEmailTemplates, id)
}
