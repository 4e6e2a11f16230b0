package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	repo "github.com/lottosix/lottery-api/internal/domain/repository"
	"github.com/lottosix/lottery-api/pkg/helpers"
)

// UserService serves the account page: profile view/update, avatar
// uploads to GCS, and the Elasticsearch user index the admin search
// reads from.
type UserService struct {
	Users        repo.UserRepository
	GCS          *storage.Client
	GCSBucket    string
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
}

// ProfileView is the account page payload. The password hash, TOTP
// secret and encryption key never leave the service layer.
type ProfileView struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Firstname    string     `json:"firstname"`
	Lastname     string     `json:"lastname"`
	Phone        string     `json:"phone"`
	Role         string     `json:"role"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	RegisteredOn time.Time  `json:"registered_on"`
	CurrentLogin *time.Time `json:"current_login,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func profileOf(u *entity.User) *ProfileView {
	return &ProfileView{
		ID:           u.ID,
		Email:        u.Email,
		Firstname:    u.Firstname,
		Lastname:     u.Lastname,
		Phone:        u.Phone,
		Role:         u.Role,
		AvatarURL:    u.AvatarURL,
		RegisteredOn: u.RegisteredOn,
		CurrentLogin: u.CurrentLogin,
		LastLogin:    u.LastLogin,
	}
}

func (s *UserService) GetProfile(userID string) (*ProfileView, error) {
	u, err := s.Users.GetByID(userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return profileOf(u), nil
}

type UpdateProfileInput struct {
	Firstname string
	Lastname  string
	Phone     string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*ProfileView, error) {
	u, err := s.Users.GetByID(userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if in.Firstname != "" {
		u.Firstname = in.Firstname
	}
	if in.Lastname != "" {
		u.Lastname = in.Lastname
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}
	if err := s.Users.Update(u); err != nil {
		return nil, err
	}
	_ = s.IndexUser(ctx, u)
	return profileOf(u), nil
}

// UploadAvatar stores the image under avatars/<userID>/<uuid><ext> in
// GCS and persists the public URL on the profile.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.Users.GetByID(userID)
	if err != nil || u == nil {
		return "", ErrUserNotFound
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, id+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	u.AvatarURL = url
	if err := s.Users.Update(u); err != nil {
		return "", err
	}
	_ = s.IndexUser(ctx, u)
	return url, nil
}

// IndexUser writes the searchable profile fields to Elasticsearch.
// Secrets stay out of the document. Failures are logged, not fatal:
// search lags rather than blocking the write path.
func (s *UserService) IndexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"firstname":     u.Firstname,
		"lastname":      u.Lastname,
		"phone":         u.Phone,
		"role":          u.Role,
		"registered_on": u.RegisteredOn.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

// SearchUsers runs a multi_match over email, name and phone for the
// admin search box.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "firstname", "lastname", "phone"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
