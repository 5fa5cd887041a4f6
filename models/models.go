package models

import (
	"time"
)

// Role is the access level attached to a User.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleEditor     Role = "EDITOR"
	RoleUser       Role = "USER"
)

// AtLeast reports whether r grants everything that required grants.
// Ordering: USER < EDITOR < ADMIN < SUPER_ADMIN.
func (r Role) AtLeast(required Role) bool {
	rank := map[Role]int{RoleUser: 0, RoleEditor: 1, RoleAdmin: 2, RoleSuperAdmin: 3}
	return rank[r] >= rank[required]
}

// ContentType distinguishes articles from blog posts within the
// articles collection.
type ContentType string

const (
	TypeArticle ContentType = "ARTICLE"
	TypeBlog    ContentType = "BLOG"
)

// ContentStatus is the editorial lifecycle status of an Article.
// Any status may be set to any other by an admin write; none are terminal.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "DRAFT"
	StatusPending   ContentStatus = "PENDING"
	StatusApproved  ContentStatus = "APPROVED"
	StatusRejected  ContentStatus = "REJECTED"
	StatusPublished ContentStatus = "PUBLISHED"
	StatusScheduled ContentStatus = "SCHEDULED"
)

// DownloadAccess gates who may download a record's PDF.
type DownloadAccess string

const (
	AccessFree            DownloadAccess = "FREE"
	AccessSubscribersOnly DownloadAccess = "SUBSCRIBERS_ONLY"
)

// PaymentStatus is the state of a PaymentRecord.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentRejected  PaymentStatus = "REJECTED"
)

// Credential is a login record, kept separate from the User profile.
// The password is stored as a bcrypt hash, never plaintext.
type Credential struct {
	ID           string    `json:"id"` // Dashless UUID, shared with the User record
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreationDate time.Time `json:"creation_date"` // UTC
}

// Permissions are the download entitlements granted to a user,
// typically by a completed payment.
type Permissions struct {
	CanDownloadArticles  bool `json:"can_download_articles"`
	CanDownloadBlogs     bool `json:"can_download_blogs"`
	CanDownloadMagazines bool `json:"can_download_magazines"`
}

// User is a full profile: identity, role, and subscription state.
type User struct {
	ID                 string      `json:"id"` // Same dashless UUID as the Credential
	Email              string      `json:"email"`
	Name               string      `json:"name"`
	AvatarURL          string      `json:"avatar_url,omitempty"`
	Role               Role        `json:"role"`
	SubscriptionTier   string      `json:"subscription_tier,omitempty"`
	SubscriptionExpiry time.Time   `json:"subscription_expiry,omitempty"`
	ArticleUsage       int         `json:"article_usage"`
	ArticleLimit       int         `json:"article_limit"`
	BlogUsage          int         `json:"blog_usage"`
	BlogLimit          int         `json:"blog_limit"`
	Permissions        Permissions `json:"permissions"`
	CreationDate       time.Time   `json:"creation_date"`      // UTC
	LastModifiedDate   time.Time   `json:"last_modified_date"` // UTC
}

// HasActiveSubscription reports whether the user's subscription expiry
// lies in the future.
func (u User) HasActiveSubscription() bool {
	return !u.SubscriptionExpiry.IsZero() && u.SubscriptionExpiry.After(time.Now().UTC())
}

// Article is a piece of editorial content. The Type discriminator
// unifies articles and blog posts in one collection.
type Article struct {
	ID               string         `json:"id"`
	Type             ContentType    `json:"type"`
	Title            string         `json:"title"`
	Abstract         string         `json:"abstract,omitempty"`
	Body             string         `json:"body,omitempty"`
	AuthorID         string         `json:"author_id"`
	AuthorName       string         `json:"author_name"`
	Status           ContentStatus  `json:"status"`
	DownloadAccess   DownloadAccess `json:"download_access"`
	CoverImageURL    string         `json:"cover_image_url,omitempty"`
	PDFURL           string         `json:"pdf_url,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	SubmissionDate   time.Time      `json:"submission_date"` // UTC
	ScheduledDate    time.Time      `json:"scheduled_date,omitempty"`
	LastModifiedDate time.Time      `json:"last_modified_date"` // UTC
}

// Magazine is a periodical issue keyed by volume/issue/month/year.
type Magazine struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Volume         int            `json:"volume"`
	Issue          int            `json:"issue"`
	Month          string         `json:"month"`
	Year           int            `json:"year"`
	CoverImageURL  string         `json:"cover_image_url,omitempty"`
	PDFURL         string         `json:"pdf_url,omitempty"`
	DownloadAccess DownloadAccess `json:"download_access"`
	CreationDate   time.Time      `json:"creation_date"` // UTC
}

// Product is a store item.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	ImageURL     string    `json:"image_url,omitempty"`
	InStock      bool      `json:"in_stock"`
	CreationDate time.Time `json:"creation_date"` // UTC
}

// NewsItem is a short announcement shown on the public site.
type NewsItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreationDate time.Time `json:"creation_date"` // UTC
}

// EditorialMember is a member of the editorial board.
type EditorialMember struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Order       int    `json:"order"`
}

// LeadershipMember is a member of the organization's leadership.
type LeadershipMember struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	Bio      string `json:"bio,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
	Order    int    `json:"order"`
}

// Coupon is a discount code applied at checkout.
type Coupon struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	DiscountType string    `json:"discount_type"` // "PERCENT" or "FLAT"
	Value        float64   `json:"value"`
	ExpiryDate   time.Time `json:"expiry_date,omitempty"`
	Active       bool      `json:"active"`
	CreationDate time.Time `json:"creation_date"` // UTC
}

// SubscriptionPlan defines a purchasable tier and the entitlements
// granted when a payment against it completes.
type SubscriptionPlan struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Price          float64  `json:"price"`
	DurationMonths int      `json:"duration_months"`
	ArticleLimit   int      `json:"article_limit"`
	BlogLimit      int      `json:"blog_limit"`
	Perks          []string `json:"perks,omitempty"`
}

// PaymentRecord tracks a subscription purchase through manual verification.
type PaymentRecord struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	PlanID       string        `json:"plan_id"`
	Amount       float64       `json:"amount"`
	Method       string        `json:"method,omitempty"`    // e.g. "UPI", "BANK_TRANSFER"
	Reference    string        `json:"reference,omitempty"` // Transaction reference supplied by the user
	Status       PaymentStatus `json:"status"`
	CreationDate time.Time     `json:"creation_date"`           // UTC
	VerifiedDate time.Time     `json:"verified_date,omitempty"` // UTC, set on COMPLETED
}

// Inquiry is a contact-form submission.
type Inquiry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Subject      string    `json:"subject,omitempty"`
	Message      string    `json:"message"`
	Resolved     bool      `json:"resolved"`
	CreationDate time.Time `json:"creation_date"` // UTC
}

// Notification is an in-app message shown to a user or to admins.
type Notification struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"` // Empty means broadcast to admins
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	Read         bool      `json:"read"`
	CreationDate time.Time `json:"creation_date"` // UTC
}

// StaticPage is an admin-managed content page addressed by slug.
type StaticPage struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	Body             string    `json:"body,omitempty"`
	LastModifiedDate time.Time `json:"last_modified_date"` // UTC
}

// EmailTemplate is the body used for a simulated email dispatch.
type EmailTemplate struct {
	ID      string `json:"id"`
	Key     string `json:"key"` // e.g. "payment_confirmed"
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NavItem is one entry in the site navigation.
type NavItem struct {
	Label    string `json:"label"`
	Path     string `json:"path"`
	External bool   `json:"external,omitempty"`
}

// SiteSettings is the singleton global configuration record.
// It lives in a collection of length one.
type SiteSettings struct {
	ID             string            `json:"id"`
	SiteName       string            `json:"site_name"`
	Tagline        string            `json:"tagline,omitempty"`
	ContactEmail   string            `json:"contact_email,omitempty"`
	ContactPhone   string            `json:"contact_phone,omitempty"`
	Address        string            `json:"address,omitempty"`
	LogoURL        string            `json:"logo_url,omitempty"`
	Navigation     []NavItem         `json:"navigation"`
	HomepageLayout []string          `json:"homepage_layout"` // Ordered section keys
	SocialLinks    map[string]string `json:"social_links,omitempty"`
}

// RecordID returns the record's id. Implemented by every entity so
// generic store helpers can replace and filter records by id.
func (c Credential) RecordID() string       { return c.ID }
func (u User) RecordID() string             { return u.ID }
func (a Article) RecordID() string          { return a.ID }
func (m Magazine) RecordID() string         { return m.ID }
func (p Product) RecordID() string          { return p.ID }
func (n NewsItem) RecordID() string         { return n.ID }
func (e EditorialMember) RecordID() string  { return e.ID }
func (l LeadershipMember) RecordID() string { return l.ID }
func (c Coupon) RecordID() string           { return c.ID }
func (p SubscriptionPlan) RecordID() string { return p.ID }
func (p PaymentRecord) RecordID() string    { return p.ID }
func (i Inquiry) RecordID() string          { return i.ID }
func (n Notification) RecordID() string     { return n.ID }
func (p StaticPage) RecordID() string       { return p.ID }
func (e EmailTemplate) RecordID() string    { return e.ID }
func (s SiteSettings) RecordID() string     { return s.ID }

// Collection names. Every entity lives in its own named collection,
// persisted as one JSON array under that key.
const (
	ColCredentials    = "credentials"
	ColUsers          = "users"
	ColArticles       = "articles"
	ColMagazines      = "magazines"
	ColProducts       = "products"
	ColNews           = "news"
	ColEditorialBoard = "editorial_board"
	ColLeadership     = "leadership"
	ColCoupons        = "coupons"
	ColPlans          = "subscription_plans"
	ColPayments       = "payments"
	ColInquiries      = "inquiries"
	ColNotifications  = "notifications"
	ColPages          = "pages"
	ColEmailTemplates = "email_templates"
	ColSettings       = "site_settings"
)

// KnownCollections lists every collection name the store manages.
// Used by the admin record browser and the websocket stream to reject
// arbitrary keys.
var KnownCollections = []string{
	ColCredentials, ColUsers, ColArticles, ColMagazines, ColProducts,
	ColNews, ColEditorialBoard, ColLeadership, ColCoupons, ColPlans,
	ColPayments, ColInquiries, ColNotifications, ColPages,
	ColEmailTemplates, ColSettings,
}

// IsKnownCollection reports whether name is a collection the store manages.
func IsKnownCollection(name string) bool {
	for _, c := range KnownCollections {
		if c == name {
			return true
		}
	}
	return false
}
