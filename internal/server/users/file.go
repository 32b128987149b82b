package users

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/phantomchat/internal/common"
	"github.com/dmitrijs2005/phantomchat/internal/filex"
)

// FileRepository keeps credentials in a flat text file, one record per line
// in "username:digest" form. The whole set is loaded once at construction
// and the file is rewritten in full, under the repository mutex, on every
// successful Create. Malformed lines are skipped on load, not fatal.
type FileRepository struct {
	path string

	mu      sync.Mutex
	records map[string]string
}

// NewFileRepository loads the credential file at path, creating an empty one
// if it does not exist yet.
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{path: path, records: make(map[string]string)}

	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
		return r, nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, digest, ok := strings.Cut(line, ":")
		name, digest = strings.TrimSpace(name), strings.TrimSpace(digest)
		if !ok || name == "" || digest == "" {
			continue
		}
		r.records[name] = digest
	}

	return r, nil
}

func (r *FileRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[user.UserName]; exists {
		return common.ErrorAlreadyExists
	}

	r.records[user.UserName] = user.PasswordDigest
	if err := r.persist(); err != nil {
		delete(r.records, user.UserName)
		return fmt.Errorf("persisting credentials: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByUserName(ctx context.Context, userName string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	digest, ok := r.records[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &User{UserName: userName, PasswordDigest: digest}, nil
}

// persist rewrites the backing file with the full record set. Callers hold
// the mutex, so writes never interleave. Records are written sorted to keep
// the file deterministic, and the rewrite goes through a temp file plus
// rename so a crash mid-write cannot leave a truncated credential file.
func (r *FileRepository) persist() error {
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte(':')
		sb.WriteString(r.records[name])
		sb.WriteByte('\n')
	}

	suffix, err := common.MakeRandHexString(4)
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp" + suffix
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
