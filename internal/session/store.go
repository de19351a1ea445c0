// File: internal/session/store.go
package session

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store reads and writes the session cookie file. Absence of the file, a
// parse failure, or an empty cookie array all load as "no session" rather
// than an error. Writers are not coordinated: concurrent Save calls can lose
// an update, so callers renewing authentication concurrently must serialize.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore creates a store for the given cookie file path. A leading "~" is
// expanded to the user's home directory.
func NewStore(path string, logger *zap.Logger) *Store {
	expanded, err := homedir.Expand(path)
	if err != nil {
		expanded = path
	}
	return &Store{
		path: expanded,
		log:  logger.Named("session_store"),
	}
}

// Path returns the resolved location of the cookie file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted session. The second return value reports presence:
// false means no usable session exists, which is a normal outcome.
func (s *Store) Load() (Session, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Could not read session file", zap.String("path", s.path), zap.Error(err))
		}
		return nil, false
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.log.Warn("Session file is not valid JSON; treating as absent",
			zap.String("path", s.path), zap.Error(err))
		return nil, false
	}
	if sess.Empty() {
		return nil, false
	}

	s.log.Debug("Session loaded", zap.Int("cookies", len(sess)))
	return sess, true
}

// Save persists the session as a whole-file atomic replace and verifies the
// result. An empty session is refused without touching the destination, so a
// good session on disk is never clobbered by a failed login.
func (s *Store) Save(sess Session) bool {
	if sess.Empty() {
		s.log.Warn("Refusing to save an empty session")
		return false
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		s.log.Error("Could not serialize session", zap.Error(err))
		return false
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		s.log.Error("Could not create session directory", zap.String("dir", dir), zap.Error(err))
		return false
	}

	tmp, err := os.CreateTemp(dir, ".cookies-*.json")
	if err != nil {
		s.log.Error("Could not create temporary session file", zap.Error(err))
		return false
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.log.Error("Could not write session file", zap.Error(err))
		return false
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.log.Error("Could not close session file", zap.Error(err))
		return false
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		s.log.Error("Could not replace session file", zap.String("path", s.path), zap.Error(err))
		return false
	}

	// Verify the write landed before reporting success.
	if _, err := os.Stat(s.path); err != nil {
		s.log.Error("Session file missing after write", zap.String("path", s.path), zap.Error(err))
		return false
	}

	s.log.Info("Session saved", zap.String("path", s.path), zap.Int("cookies", len(sess)))
	return true
}
