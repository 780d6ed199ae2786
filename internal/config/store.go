package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/gridmon/rsv-probe/internal/logger"
	"gopkg.in/ini.v1"
)

// section holds one INI section. Key order is kept so that env actions are
// applied in the order the operator wrote them.
type section struct {
	keys   []string
	values map[string]string
}

func (s *section) set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Store is layered key/value configuration: defaults first, then each loaded
// file overwriting earlier values for the same (section, key). Keys are
// case-sensitive.
type Store struct {
	sections map[string]*section
	order    []string
	log      logger.Logger
}

// NewStore creates an empty store. A nil logger discards messages.
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.Noop()
	}
	return &Store{
		sections: make(map[string]*section),
		log:      log,
	}
}

func (s *Store) section(name string) *section {
	sec, ok := s.sections[name]
	if !ok {
		sec = &section{values: make(map[string]string)}
		s.sections[name] = sec
		s.order = append(s.order, name)
	}
	return sec
}

// SetDefault records a built-in default. Any file-provided value for the
// same key replaces it.
func (s *Store) SetDefault(sectionName, key, value string) {
	s.log.Debug("    Setting default '%s=%s'", key, value)
	s.section(sectionName).set(key, value)
}

// Set stores a value, replacing any previous one.
func (s *Store) Set(sectionName, key, value string) {
	s.section(sectionName).set(key, value)
}

// Get returns the value for (section, key) and whether it exists.
func (s *Store) Get(sectionName, key string) (string, bool) {
	sec, ok := s.sections[sectionName]
	if !ok {
		return "", false
	}
	v, ok := sec.values[key]
	return v, ok
}

// GetInt returns the integer value for (section, key). present is false when
// the key is absent; err is non-nil when it is present but not an integer.
func (s *Store) GetInt(sectionName, key string) (value int, present bool, err error) {
	raw, ok := s.Get(sectionName, key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}

// Equals reports whether (section, key) is set and equals want, ignoring case.
func (s *Store) Equals(sectionName, key, want string) bool {
	v, ok := s.Get(sectionName, key)
	return ok && strings.EqualFold(v, want)
}

// HasSection reports whether a section exists.
func (s *Store) HasSection(name string) bool {
	_, ok := s.sections[name]
	return ok
}

// Keys returns the keys of a section in first-seen order.
func (s *Store) Keys(sectionName string) []string {
	sec, ok := s.sections[sectionName]
	if !ok {
		return nil
	}
	keys := make([]string, len(sec.keys))
	copy(keys, sec.keys)
	return keys
}

// Sections returns section names in first-seen order.
func (s *Store) Sections() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Load parses an INI file into the store. A missing required file is a
// CONFIG_MISSING error; a missing optional file is silently skipped.
func (s *Store) Load(path string, required bool) error {
	s.log.Info("    reading configuration file %s", path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if required {
				return errors.WrapWithCode(err, errors.ErrConfigMissing,
					"missing required configuration file '"+path+"'",
					"Check the RSV installation under --vdt-location")
			}
			s.log.Info("    configuration file does not exist %s", path)
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrConfigMissing,
			"cannot access configuration file '"+path+"'",
			"Check file permissions")
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:        true,
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfigInvalid,
			"failed to parse configuration file '"+path+"'",
			"Check the INI syntax of the file")
	}

	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		// Value is the raw text; String would expand %(name)s references.
		for _, key := range sec.Keys() {
			s.Set(sec.Name(), key.Name(), key.Value())
		}
	}

	return nil
}
