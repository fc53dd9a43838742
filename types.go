package vyakta

import "time"

// Status is the lifecycle state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusTrash     Status = "trash"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusTrash:
		return true
	}
	return false
}

// Role is a user's permission level. Admins may edit any post, editors only
// their own.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// FeaturedImage is the cover image of a post.
type FeaturedImage struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Trending flags a post for the trending sidebar. The flag has no expiry of
// its own; see Post.IsTrending.
type Trending struct {
	IsTrending bool       `json:"isTrending"`
	TrendingAt *time.Time `json:"trendingAt,omitempty"`
}

// AuthorRef is the public projection of a post's author.
type AuthorRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// CategoryRef is the projection of a category embedded in a post.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Post is a blog article. ReadingTime, Excerpt (when not supplied),
// PublishedAt and SEOScore are derived on every save by Prepare.
type Post struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Slug            string         `json:"slug"`
	MetaDescription string         `json:"metaDescription"`
	Content         string         `json:"content,omitempty"`
	Excerpt         string         `json:"excerpt"`
	FeaturedImage   *FeaturedImage `json:"featuredImage,omitempty"`
	AuthorID        string         `json:"-"`
	Author          *AuthorRef     `json:"author,omitempty"`
	CategoryIDs     []string       `json:"-"`
	Categories      []CategoryRef  `json:"categories"`
	Tags            []string       `json:"tags"`
	Status          Status         `json:"status"`
	PublishedAt     *time.Time     `json:"publishedAt,omitempty"`
	ReadingTime     int            `json:"readingTime"`
	Views           int            `json:"views"`
	SEOScore        int            `json:"seoScore"`
	CanonicalURL    string         `json:"canonicalUrl,omitempty"`
	FocusKeyphrase  string         `json:"focusKeyphrase,omitempty"`
	Trending        Trending       `json:"trending"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Category groups posts. PostCount is maintained by the Recounter and is
// never written by callers.
type Category struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description,omitempty"`
	MetaDescription string    `json:"metaDescription,omitempty"`
	PostCount       int       `json:"postCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// User is an admin or editor account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Bio          string    `json:"bio,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether u has the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Image is the metadata of an uploaded image.
type Image struct {
	PublicID   string    `json:"publicId"`
	URL        string    `json:"url"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Format     string    `json:"format"`
	Bytes      int       `json:"bytes"`
	UploadedAt time.Time `json:"uploadedAt"`

	// Sizes holds delivery URLs of resized variants when the host
	// provides them. It is not stored.
	Sizes map[string]string `json:"sizes,omitempty"`
}

// PostInput carries the fields of a create or update request. Nil fields are
// left untouched on update.
type PostInput struct {
	Title           *string        `json:"title"`
	Slug            *string        `json:"slug"`
	MetaDescription *string        `json:"metaDescription"`
	Content         *string        `json:"content"`
	Excerpt         *string        `json:"excerpt"`
	FeaturedImage   *FeaturedImage `json:"featuredImage"`
	Categories      []string       `json:"categories"`
	Tags            []string       `json:"tags"`
	Status          *Status        `json:"status"`
	CanonicalURL    *string        `json:"canonicalUrl"`
	FocusKeyphrase  *string        `json:"focusKeyphrase"`
	Trending        *TrendingInput `json:"trending"`
}

// TrendingInput raises or lowers the trending flag. Raising it stamps the
// post with the time of the write.
type TrendingInput struct {
	IsTrending bool `json:"isTrending"`
}

// CategoryInput carries the fields of a category create or update request.
type CategoryInput struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	MetaDescription string `json:"metaDescription"`
}

// Sort orders for post listings.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
)

// PostQuery filters a post listing.
type PostQuery struct {
	Page     int
	Limit    int
	Category string // category slug
	Tag      string
	Search   string
	Sort     string
	Status   Status // admin listings only; public listings are always published
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// PostList is a page of posts.
type PostList struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// DashboardStats summarizes the site for the admin dashboard.
type DashboardStats struct {
	TotalPosts      int    `json:"totalPosts"`
	PublishedPosts  int    `json:"publishedPosts"`
	DraftPosts      int    `json:"draftPosts"`
	TotalCategories int    `json:"totalCategories"`
	TotalViews      int    `json:"totalViews"`
	RecentPosts     []Post `json:"recentPosts"`
}
