package coord

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/grovetools/coord/command"
	"github.com/grovetools/coord/git"
	"github.com/grovetools/coord/state"
	"github.com/grovetools/coord/util/sanitize"
	"github.com/joho/godotenv"
)

// Environment variables consulted when resolving the project and session.
const (
	EnvProjectDir       = "COORD_PROJECT_DIR"
	EnvClaudeProjectDir = "CLAUDE_PROJECT_DIR"
	EnvSessionID        = "COORD_SESSION_ID"
	EnvClaudeSessionID  = "CLAUDE_SESSION_ID"

	// EnvFile is loaded from the project root before configuration.
	EnvFile = ".coord.env"

	stateSessionPrefix = "session."
)

// NewSessionID returns "<user>-<base36 millis>-<6 hex>". rnd defaults to
// crypto/rand.
func NewSessionID(user string, now time.Time, rnd io.Reader) (string, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	buf := make([]byte, 3)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s",
		sanitize.ForUserName(user),
		strconv.FormatInt(now.UnixMilli(), 36),
		hex.EncodeToString(buf),
	), nil
}

// ResolveRoot picks the project root: COORD_PROJECT_DIR, then
// CLAUDE_PROJECT_DIR, then the git root of dir, then dir itself.
func ResolveRoot(dir string) (string, error) {
	for _, key := range []string{EnvProjectDir, EnvClaudeProjectDir} {
		if v := os.Getenv(key); v != "" {
			return filepath.Abs(v)
		}
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	if root, err := git.GetGitRoot(dir); err == nil && root != "" {
		return root, nil
	}
	return filepath.Abs(dir)
}

// LoadEnvFile loads <root>/.coord.env if present. Variables already set in
// the environment win.
func LoadEnvFile(root string) error {
	path := filepath.Join(root, EnvFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ResolveSessionID picks the session id in order: COORD_SESSION_ID or
// CLAUDE_SESSION_ID, the id carried by the hook payload, the id remembered
// for owner in the state file, and finally a fresh id that is remembered
// for the next invocation by the same owner. Invalid candidates are
// skipped.
func ResolveSessionID(st *state.File, payloadID string, owner Identity, now time.Time) (string, error) {
	candidates := []string{os.Getenv(EnvSessionID), os.Getenv(EnvClaudeSessionID), payloadID}
	for _, id := range candidates {
		if validSessionID(id) {
			return id, nil
		}
	}

	if st != nil {
		if id := RememberedSessionID(st, owner); validSessionID(id) {
			return id, nil
		}
	}

	id, err := NewSessionID(owner.Developer, now, nil)
	if err != nil {
		return "", err
	}
	if st != nil {
		if err := RememberSessionID(st, owner, id); err != nil {
			return id, fmt.Errorf("remember session id: %w", err)
		}
	}
	return id, nil
}

// RememberSessionID stores id as owner's current session.
func RememberSessionID(st *state.File, owner Identity, id string) error {
	return st.Set(stateSessionPrefix+owner.Owner(), id)
}

// ForgetSessionID clears owner's remembered id so the next session gets a
// new one.
func ForgetSessionID(st *state.File, owner Identity) error {
	return st.Delete(stateSessionPrefix + owner.Owner())
}

// RememberedSessionID returns the id stored for owner, if any.
func RememberedSessionID(st *state.File, owner Identity) string {
	id, err := st.GetString(stateSessionPrefix + owner.Owner())
	if err != nil {
		return ""
	}
	return id
}

func validSessionID(id string) bool {
	return id != "" && command.ValidateSessionID(id) == nil
}
