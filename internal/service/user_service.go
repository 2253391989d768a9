package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
	"shop-api/pkg/utils"
)

type UserService struct {
	jwt *auth.JWTer
}

func NewUserService(j *auth.JWTer) *UserService { return &UserService{jwt: j} }

type Credentials struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     string  `json:"name"`
}

func (c *Credentials) requireFields(entity string) error {
	var missing []string
	if c.Email == nil {
		missing = append(missing, "email")
	}
	if c.Password == nil {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return domain.MissingFields(entity, missing...)
	}
	return nil
}

// Register always creates a plain user; admins are provisioned out of band.
func (s *UserService) Register(ctx context.Context, db *gorm.DB, in Credentials) (*domain.User, error) {
	if err := in.requireFields("user"); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(*in.Email)
	if !strings.Contains(email, "@") {
		return nil, domain.Invalid("user", "email", "Email address is not valid.")
	}
	if *in.Password == "" {
		return nil, domain.Invalid("user", "password", "Password must not be empty.")
	}
	return s.create(ctx, db, email, *in.Password, strings.TrimSpace(in.Name), domain.RoleUser)
}

// EnsureUser creates the account when the email is unknown and returns the
// stored user either way. Used for provisioning.
func (s *UserService) EnsureUser(ctx context.Context, db *gorm.DB, email, password, name string, role domain.Role) (*domain.User, bool, error) {
	u, err := repo.NewUserRepo(db).FindByEmail(ctx, email)
	if err != nil {
		return nil, false, domain.Storage(err)
	}
	if u != nil {
		return u, false, nil
	}
	u, err = s.create(ctx, db, email, password, name, role)
	return u, err == nil, err
}

func (s *UserService) create(ctx context.Context, db *gorm.DB, email, password, name string, role domain.Role) (*domain.User, error) {
	users := repo.NewUserRepo(db)
	existing, err := users.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if existing != nil {
		return nil, emailTaken(email)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, domain.Storage(err)
	}
	u := &domain.User{Email: email, PasswordHash: hash, Name: name, Role: role}
	if err := users.Create(ctx, u); err != nil {
		if isDupKey(err) {
			return nil, emailTaken(email)
		}
		return nil, domain.Storage(err)
	}
	return u, nil
}

func emailTaken(email string) error {
	return domain.Conflict("user", fmt.Sprintf("User %s already exist.", email))
}

// Login returns a signed bearer token. An unknown email is reported as a
// conflict (409) for compatibility with existing clients.
func (s *UserService) Login(ctx context.Context, db *gorm.DB, in Credentials) (string, error) {
	if err := in.requireFields("user"); err != nil {
		return "", err
	}
	email := strings.TrimSpace(*in.Email)
	u, err := repo.NewUserRepo(db).FindByEmail(ctx, email)
	if err != nil {
		return "", domain.Storage(err)
	}
	if u == nil {
		return "", domain.Conflict("user", fmt.Sprintf("User %s not exist.", email))
	}
	if !utils.CheckPassword(*in.Password, u.PasswordHash) {
		return "", domain.Unauthorized("Could not verify!")
	}
	tok, err := s.jwt.Issue(u.ID)
	if err != nil {
		return "", domain.Storage(fmt.Errorf("issue token: %w", err))
	}
	return tok, nil
}

// Resolve maps a verified token subject to a stored identity.
func (s *UserService) Resolve(ctx context.Context, db *gorm.DB, uid uint) (*auth.Identity, error) {
	u, err := repo.NewUserRepo(db).FindByID(ctx, uid)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if u == nil {
		return nil, domain.NotFound("user", "User not found.")
	}
	return auth.IdentityOf(u), nil
}

func (s *UserService) Me(ctx context.Context, db *gorm.DB, caller *auth.Identity) (*domain.User, error) {
	if caller == nil {
		return nil, domain.Unauthorized("Token missing")
	}
	u, err := repo.NewUserRepo(db).FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if u == nil {
		return nil, domain.NotFound("user", "User not found.")
	}
	return u, nil
}

type UserPage struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

func (s *UserService) List(ctx context.Context, db *gorm.DB, q string, offset, limit int) (*UserPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	users, total, err := repo.NewUserRepo(db).List(ctx, strings.TrimSpace(q), offset, limit)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserPage{Total: total, Items: users}, nil
}
