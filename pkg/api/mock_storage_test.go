package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/auth"
	"github.com/critiquelabs/critique/pkg/contextkeys"
)

// mockStorage is a map-backed implementation of the Storage interface for
// handler tests. Error fields inject failures per operation.
type mockStorage struct {
	mu sync.Mutex

	users      map[string]*auth.User
	tokens     map[string]*auth.AccessToken
	categories map[string]*Category
	genres     map[string]*Genre
	titles     map[int64]*Title
	reviews    map[int64]*Review
	comments   map[int64]*Comment
	nextID     int64

	signupError       error
	createReviewError error
	listTitlesError   error
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		users:      make(map[string]*auth.User),
		tokens:     make(map[string]*auth.AccessToken),
		categories: make(map[string]*Category),
		genres:     make(map[string]*Genre),
		titles:     make(map[int64]*Title),
		reviews:    make(map[int64]*Review),
		comments:   make(map[int64]*Comment),
	}
}

func (m *mockStorage) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStorage) SignupUser(ctx context.Context, username, email, code string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signupError != nil {
		return nil, m.signupError
	}
	if u, ok := m.users[username]; ok {
		if u.Email != email {
			return nil, ErrConflict
		}
		u.ConfirmationCode = code
		return u, nil
	}
	for _, u := range m.users {
		if u.Email == email {
			return nil, ErrConflict
		}
	}
	u := &auth.User{
		ID:               m.id(),
		Username:         username,
		Email:            email,
		Role:             auth.RoleUser,
		ConfirmationCode: code,
	}
	m.users[username] = u
	return u, nil
}

func (m *mockStorage) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockStorage) ListUsers(ctx context.Context, limit, offset int) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*auth.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *mockStorage) CreateUser(ctx context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return ErrConflict
	}
	user.ID = m.id()
	m.users[user.Username] = user
	return nil
}

func (m *mockStorage) UpdateUser(ctx context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; !ok {
		return ErrNotFound
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockStorage) DeleteUser(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return ErrNotFound
	}
	delete(m.users, username)
	return nil
}

func (m *mockStorage) CreateToken(ctx context.Context, token *auth.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = m.id()
	token.CreatedAt = time.Now()
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *mockStorage) GetUserByTokenHash(ctx context.Context, hash string) (*auth.AccessToken, *auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[hash]
	if !ok || token.RevokedAt != nil {
		return nil, nil, ErrNotFound
	}
	for _, u := range m.users {
		if u.ID == token.UserID {
			return token, u, nil
		}
	}
	return nil, nil, ErrNotFound
}

func (m *mockStorage) RevokeUserTokens(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var n int64
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (m *mockStorage) CreateCategory(ctx context.Context, category *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[category.Slug]; ok {
		return ErrConflict
	}
	category.ID = m.id()
	m.categories[category.Slug] = category
	return nil
}

func (m *mockStorage) ListCategories(ctx context.Context, search string, limit, offset int) ([]*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Category, 0, len(m.categories))
	for _, c := range m.categories {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStorage) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockStorage) DeleteCategoryBySlug(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[slug]; !ok {
		return ErrNotFound
	}
	delete(m.categories, slug)
	for _, t := range m.titles {
		if t.Category != nil && t.Category.Slug == slug {
			t.Category = nil
		}
	}
	return nil
}

func (m *mockStorage) CreateGenre(ctx context.Context, genre *Genre) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.genres[genre.Slug]; ok {
		return ErrConflict
	}
	genre.ID = m.id()
	m.genres[genre.Slug] = genre
	return nil
}

func (m *mockStorage) ListGenres(ctx context.Context, search string, limit, offset int) ([]*Genre, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Genre, 0, len(m.genres))
	for _, g := range m.genres {
		if search == "" || strings.Contains(strings.ToLower(g.Name), strings.ToLower(search)) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockStorage) GetGenreBySlug(ctx context.Context, slug string) (*Genre, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.genres[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

func (m *mockStorage) DeleteGenreBySlug(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.genres[slug]; !ok {
		return ErrNotFound
	}
	delete(m.genres, slug)
	return nil
}

func (m *mockStorage) CreateTitle(ctx context.Context, write *TitleWrite) (*Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	title := &Title{
		ID:          m.id(),
		Name:        write.Name,
		Year:        write.Year,
		Description: write.Description,
		Genres:      []Genre{},
	}
	if write.Category != nil {
		c, ok := m.categories[*write.Category]
		if !ok {
			return nil, ErrBadReference
		}
		title.Category = c
	}
	for _, slug := range write.Genres {
		g, ok := m.genres[slug]
		if !ok {
			return nil, ErrBadReference
		}
		title.Genres = append(title.Genres, *g)
	}
	m.titles[title.ID] = title
	return title, nil
}

func (m *mockStorage) GetTitle(ctx context.Context, id int64) (*Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.titles[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	copied.Rating = m.rating(id)
	return &copied, nil
}

func (m *mockStorage) ListTitles(ctx context.Context, filter TitleFilter) ([]*Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listTitlesError != nil {
		return nil, m.listTitlesError
	}
	out := make([]*Title, 0, len(m.titles))
	for _, t := range m.titles {
		if filter.Category != nil && (t.Category == nil || t.Category.Slug != *filter.Category) {
			continue
		}
		if filter.Year != nil && t.Year != *filter.Year {
			continue
		}
		if filter.Name != nil && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(*filter.Name)) {
			continue
		}
		if filter.Genre != nil {
			found := false
			for _, g := range t.Genres {
				if g.Slug == *filter.Genre {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		copied := *t
		copied.Rating = m.rating(t.ID)
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockStorage) UpdateTitle(ctx context.Context, id int64, patch *TitlePatch) (*Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.titles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Year != nil {
		t.Year = *patch.Year
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		c, ok := m.categories[*patch.Category]
		if !ok {
			return nil, ErrBadReference
		}
		t.Category = c
	}
	if patch.Genres != nil {
		genres := []Genre{}
		for _, slug := range patch.Genres {
			g, ok := m.genres[slug]
			if !ok {
				return nil, ErrBadReference
			}
			genres = append(genres, *g)
		}
		t.Genres = genres
	}
	copied := *t
	copied.Rating = m.rating(id)
	return &copied, nil
}

func (m *mockStorage) DeleteTitle(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.titles[id]; !ok {
		return ErrNotFound
	}
	delete(m.titles, id)
	for rid, r := range m.reviews {
		if r.TitleID == id {
			delete(m.reviews, rid)
		}
	}
	return nil
}

func (m *mockStorage) CreateReview(ctx context.Context, review *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createReviewError != nil {
		return m.createReviewError
	}
	for _, r := range m.reviews {
		if r.TitleID == review.TitleID && r.AuthorID == review.AuthorID {
			return ErrConflict
		}
	}
	review.ID = m.id()
	review.PubDate = time.Now()
	m.reviews[review.ID] = review
	return nil
}

func (m *mockStorage) GetReview(ctx context.Context, titleID, reviewID int64) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewID]
	if !ok || r.TitleID != titleID {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockStorage) ListReviews(ctx context.Context, titleID int64, limit, offset int) ([]*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Review, 0)
	for _, r := range m.reviews {
		if r.TitleID == titleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStorage) UpdateReview(ctx context.Context, review *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reviews[review.ID]
	if !ok || existing.TitleID != review.TitleID {
		return ErrNotFound
	}
	m.reviews[review.ID] = review
	return nil
}

func (m *mockStorage) DeleteReview(ctx context.Context, titleID, reviewID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[reviewID]
	if !ok || r.TitleID != titleID {
		return ErrNotFound
	}
	delete(m.reviews, reviewID)
	for cid, c := range m.comments {
		if c.ReviewID == reviewID {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *mockStorage) TitleRating(ctx context.Context, titleID int64) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rating(titleID), nil
}

// rating computes the mean under m.mu
func (m *mockStorage) rating(titleID int64) *float64 {
	var sum, n float64
	for _, r := range m.reviews {
		if r.TitleID == titleID {
			sum += float64(r.Score)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / n
	return &mean
}

func (m *mockStorage) CreateComment(ctx context.Context, comment *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = m.id()
	comment.PubDate = time.Now()
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockStorage) GetComment(ctx context.Context, reviewID, commentID int64) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockStorage) ListComments(ctx context.Context, reviewID int64, limit, offset int) ([]*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Comment, 0)
	for _, c := range m.comments {
		if c.ReviewID == reviewID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStorage) UpdateComment(ctx context.Context, comment *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.comments[comment.ID]
	if !ok || existing.ReviewID != comment.ReviewID {
		return ErrNotFound
	}
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockStorage) DeleteComment(ctx context.Context, reviewID, commentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return ErrNotFound
	}
	delete(m.comments, commentID)
	return nil
}

// testAuth maps literal bearer tokens to accounts, standing in for the
// token-resolving middleware in handler tests.
func testAuth(users map[string]*auth.User) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if user, ok := users[token]; ok {
				r = r.WithContext(contextkeys.WithActor(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}
