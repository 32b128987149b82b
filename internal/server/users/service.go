package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/phantomchat/internal/common"
	"github.com/dmitrijs2005/phantomchat/internal/cryptox"
)

// Format policy: usernames are case-sensitive, at least 3 characters,
// alphanumeric plus underscore; passwords at least 4 characters.
var userNameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,}$`)

const minPasswordLen = 4

// Service exposes the credential store operations the session layer needs.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate succeeds iff a record exists whose digest equals the digest
// of the supplied password. Returns common.ErrorUnauthorized for both an
// unknown username and a wrong password, so the two cases are
// indistinguishable to the peer.
func (s *Service) Authenticate(ctx context.Context, userName, password string) error {
	user, err := s.repo.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Burn a digest anyway so an unknown name costs the same as a
			// wrong password.
			_ = cryptox.PasswordDigest(userName, password)
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}

	candidate := cryptox.PasswordDigest(userName, password)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(user.PasswordDigest)) != 1 {
		return common.ErrorUnauthorized
	}
	return nil
}

// Register validates the format policy, then creates and persists the
// record. Fails with common.ErrorInvalidFormat on policy violations and
// common.ErrorAlreadyExists when the username is taken; uniqueness under
// concurrent registration is the repository's contract.
func (s *Service) Register(ctx context.Context, userName, password string) error {
	if !userNameRe.MatchString(userName) {
		return fmt.Errorf("%w: username must be at least 3 characters of [A-Za-z0-9_]", common.ErrorInvalidFormat)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorInvalidFormat, minPasswordLen)
	}

	user := &User{
		UserName:       userName,
		PasswordDigest: cryptox.PasswordDigest(userName, password),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}
