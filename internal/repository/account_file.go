package repository

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// AccountFileRepo keeps accounts in a flat file, one username|role|hash
// line per account.  It is the default backend for a single-machine
// install.
type AccountFileRepo struct {
	path string
	log  *logrus.Logger
}

func NewAccountFileRepo(path string, log *logrus.Logger) *AccountFileRepo {
	if log == nil {
		log = utils.DiscardLogger()
	}
	return &AccountFileRepo{path: path, log: log}
}

// Create hashes password with bcrypt at the given cost and appends the
// account.  Usernames are compared case-sensitively.
func (r *AccountFileRepo) Create(ctx context.Context, username, password string, role model.Role, cost int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	accounts, err := r.readAll()
	if err != nil {
		return err
	}
	if _, ok := accounts[username]; ok {
		return ErrAccountExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	accounts[username] = model.Account{Username: username, Role: role, PasswordHash: hash}

	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	for _, name := range names {
		a := accounts[name]
		fmt.Fprintf(&buf, "%s|%s|%s\n", a.Username, a.Role, a.PasswordHash)
	}
	if err := writeFileAtomic(r.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("%w: save accounts: %w", ErrPersistence, err)
	}
	return nil
}

// GetByUsername fetches one account or ErrAccountNotFound.
func (r *AccountFileRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, err
	}
	accounts, err := r.readAll()
	if err != nil {
		return model.Account{}, err
	}
	a, ok := accounts[username]
	if !ok {
		return model.Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (r *AccountFileRepo) readAll() (map[string]model.Account, error) {
	accounts := make(map[string]model.Account)
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return accounts, nil
		}
		return nil, fmt.Errorf("%w: open accounts: %w", ErrPersistence, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		role, ok := model.Role(""), false
		if len(parts) == 3 {
			role, ok = model.ParseRole(parts[1])
		}
		if !ok || parts[0] == "" || parts[2] == "" {
			r.log.WithFields(logrus.Fields{"file": r.path, "line": lineNo}).Warn("skipping malformed account")
			continue
		}
		accounts[parts[0]] = model.Account{Username: parts[0], Role: role, PasswordHash: parts[2]}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read accounts: %w", ErrPersistence, err)
	}
	return accounts, nil
}
