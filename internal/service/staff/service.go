package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/resto-go/internal/auth"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/repository"
	postgresrepo "github.com/kirinyoku/resto-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/resto-go/internal/repository/redis"
)

const minPasswordLen = 6

type Config struct {
	// BcryptCost of 0 means bcrypt.DefaultCost.
	BcryptCost int
}

type Service struct {
	store   *postgresrepo.Store
	issuer  *auth.Issuer
	limiter *redisrepo.SlidingWindowLimiter
	cfg     Config
}

func New(
	store *postgresrepo.Store,
	issuer *auth.Issuer,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	return &Service{
		store:   store,
		issuer:  issuer,
		limiter: limiter,
		cfg:     cfg,
	}
}

type CreateInput struct {
	FullName string
	Login    string
	Password string
	Role     domain.Role
	Phone    string
}

// UpdateInput holds the employee fields to change; nil leaves a field as is.
type UpdateInput struct {
	FullName *string
	Phone    *string
	Role     *domain.Role
	Password *string
}

// Login checks credentials and issues an access token.
//
// Parameters:
//   - ctx: request-scoped context.
//   - login, password: the credentials.
//   - rateKey: identifies the caller for rate limiting; empty disables the limit.
//
// Returns:
//   - auth.Token: the signed access token.
//   - error: domain.ErrUnauthorized for unknown login or wrong password.
//   - error: domain.ErrRateLimited when the caller tried too often.
func (s *Service) Login(ctx context.Context, login, password, rateKey string) (auth.Token, error) {
	const op = "service.staff.Login"

	if rateKey != "" {
		d, err := s.limiter.Allow(ctx, rateKey)
		if err != nil {
			return auth.Token{}, fmt.Errorf("%s:%w", op, err)
		}
		if !d.Allowed {
			return auth.Token{}, fmt.Errorf("%s:%w", op, domain.RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	e, err := s.store.Staff().GetByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, repository.ErrNotFound) {
		return auth.Token{}, fmt.Errorf("%s:%w: bad credentials", op, domain.ErrUnauthorized)
	}
	if err != nil {
		return auth.Token{}, fmt.Errorf("%s:%w", op, err)
	}

	if !auth.VerifyPassword(e.PasswordHash, password) {
		return auth.Token{}, fmt.Errorf("%s:%w: bad credentials", op, domain.ErrUnauthorized)
	}

	tok, err := s.issuer.Issue(*e)
	if err != nil {
		return auth.Token{}, fmt.Errorf("%s:%w", op, err)
	}

	return tok, nil
}

// Me returns the employee behind the actor.
func (s *Service) Me(ctx context.Context, actor domain.Actor) (*domain.Employee, error) {
	const op = "service.staff.Me"

	e, err := s.store.Staff().Get(ctx, actor.StaffID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return e, nil
}

func (s *Service) CreateEmployee(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Employee, error) {
	const op = "service.staff.CreateEmployee"

	if err := actor.Require(domain.CapManageStaff); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	e, err := s.create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return e, nil
}

func (s *Service) ListEmployees(ctx context.Context, actor domain.Actor) ([]domain.Employee, error) {
	const op = "service.staff.ListEmployees"

	if err := actor.Require(domain.CapManageStaff); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := s.store.Staff().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) GetEmployee(ctx context.Context, actor domain.Actor, id int64) (*domain.Employee, error) {
	const op = "service.staff.GetEmployee"

	if err := actor.Require(domain.CapManageStaff); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	e, err := s.store.Staff().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "employee", id))
	}

	return e, nil
}

// UpdateEmployee applies the non-nil fields of in. A non-empty password is
// re-hashed; the login cannot change.
//
// Returns:
//   - error: domain.ErrNotFound if the employee is not found.
//   - error: domain.ErrInvalidInput on an empty name, a short password or an unknown role.
func (s *Service) UpdateEmployee(ctx context.Context, actor domain.Actor, id int64, in UpdateInput) (*domain.Employee, error) {
	const op = "service.staff.UpdateEmployee"

	if err := actor.Require(domain.CapManageStaff); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	repo := s.store.Staff()

	cur, err := repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "employee", id))
	}

	next := *cur
	next.PasswordHash = ""
	if in.FullName != nil {
		next.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		next.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		next.Role = *in.Role
	}

	switch {
	case next.FullName == "":
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "full_name", Reason: "is required"})
	case !next.Role.Valid():
		return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{Field: "position", Reason: fmt.Sprintf("unknown role %q", next.Role)})
	}

	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < minPasswordLen {
			return nil, fmt.Errorf("%s:%w", op, domain.InvalidInputError{
				Field:  "password",
				Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen),
			})
		}
		next.PasswordHash, err = auth.HashPassword(*in.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	if err := repo.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "employee", id))
	}

	out, err := repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, notFound(err, "employee", id))
	}

	return out, nil
}

// DeleteEmployee removes a staff account that has never taken an order.
//
// Returns:
//   - error: domain.ErrConflict while orders reference the employee, or when
//     the actor deletes their own account.
//   - error: domain.ErrNotFound if the employee is not found.
func (s *Service) DeleteEmployee(ctx context.Context, actor domain.Actor, id int64) error {
	const op = "service.staff.DeleteEmployee"

	if err := actor.Require(domain.CapManageStaff); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if id == actor.StaffID {
		return fmt.Errorf("%s:%w: cannot delete your own account", op, domain.ErrConflict)
	}

	err := s.store.Staff().Delete(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		return fmt.Errorf("%s:%w: employee %d has orders", op, domain.ErrConflict, id)
	}
	if err != nil {
		return fmt.Errorf("%s:%w", op, notFound(err, "employee", id))
	}

	return nil
}

// Positions lists the staff roles with their ids.
func (s *Service) Positions(ctx context.Context) ([]domain.Position, error) {
	const op = "service.staff.Positions"

	out, err := s.store.Staff().Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// EnsureBootstrapAdmin creates an administrator when the employee table is empty.
// It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, login, password string) (bool, error) {
	const op = "service.staff.EnsureBootstrapAdmin"

	if login == "" || password == "" {
		return false, nil
	}

	n, err := s.store.Staff().Count(ctx)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}
	if n > 0 {
		return false, nil
	}

	_, err = s.create(ctx, CreateInput{
		FullName: "Administrator",
		Login:    login,
		Password: password,
		Role:     domain.RoleAdministrator,
	})
	if errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return true, nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (*domain.Employee, error) {
	e := domain.Employee{
		FullName: strings.TrimSpace(in.FullName),
		Login:    strings.TrimSpace(in.Login),
		Role:     in.Role,
		Phone:    strings.TrimSpace(in.Phone),
	}

	switch {
	case e.FullName == "":
		return nil, domain.InvalidInputError{Field: "full_name", Reason: "is required"}
	case e.Login == "":
		return nil, domain.InvalidInputError{Field: "login", Reason: "is required"}
	case len(in.Password) < minPasswordLen:
		return nil, domain.InvalidInputError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	case !e.Role.Valid():
		return nil, domain.InvalidInputError{Field: "position", Reason: fmt.Sprintf("unknown role %q", in.Role)}
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	e.PasswordHash = hash

	id, err := s.store.Staff().Create(ctx, e)
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%w: login %q is taken", domain.ErrConflict, e.Login)
	}
	if err != nil {
		return nil, err
	}
	e.ID = id

	return &e, nil
}

// notFound turns repository.ErrNotFound into a domain.NotFoundError for entity.
func notFound(err error, entity string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
