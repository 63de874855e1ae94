package config

import (
	"fmt"
	"os"

	"github.com/zineproject/zine/internal/platform/errors"
)

// renameConfig is the final step of a commit. Tests replace it to inject
// mid-commit failures.
var renameConfig = os.Rename

// Transaction stages configuration edits. Changes become visible, in
// memory and on disk, only when Commit succeeds; a failed commit leaves
// the store at the prior committed state. A finished transaction rejects
// further use.
type Transaction struct {
	cfg    *Config
	values map[string]string
	remove []string
	done   bool
}

// Set stages a typed value for a registered variable. Setting a key to
// its current effective value is a no-op so defaulted keys do not
// materialize into the file.
func (t *Transaction) Set(key string, value any) error {
	if err := t.assertOpen(); err != nil {
		return err
	}
	key = normalizeKey(key)
	t.cfg.mu.RLock()
	v, known := t.cfg.vars[key]
	t.cfg.mu.RUnlock()
	if !known {
		return errors.New(errors.CodeConfigUnknown, fmt.Sprintf("unknown configuration key %q", key))
	}
	primitive, ok := v.primitive(value)
	if !ok {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("value %v does not fit configuration key %q", value, key))
	}
	return t.stage(key, v, primitive)
}

// SetString stages a value given in file (string) form, converting
// through the variable's type to normalize it.
func (t *Transaction) SetString(key, raw string) error {
	if err := t.assertOpen(); err != nil {
		return err
	}
	key = normalizeKey(key)
	t.cfg.mu.RLock()
	v, known := t.cfg.vars[key]
	t.cfg.mu.RUnlock()
	if !known {
		return errors.New(errors.CodeConfigUnknown, fmt.Sprintf("unknown configuration key %q", key))
	}
	primitive, _ := v.primitive(v.convert(raw))
	return t.stage(key, v, primitive)
}

// stage records the primitive value unless it matches the current
// effective value.
func (t *Transaction) stage(key string, v Var, primitive string) error {
	if staged, ok := t.values[key]; ok {
		if staged == primitive {
			return nil
		}
		t.values[key] = primitive
		return nil
	}
	current, ok := t.cfg.Raw(key)
	if !ok {
		current = v.Default
	}
	if current == primitive {
		return nil
	}
	t.values[key] = primitive
	return nil
}

// Update stages multiple typed values at once.
func (t *Transaction) Update(values map[string]any) error {
	for _, key := range sortedKeys(values) {
		if err := t.Set(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// Revert stages removal of a key, restoring the variable default.
func (t *Transaction) Revert(key string) error {
	if err := t.assertOpen(); err != nil {
		return err
	}
	t.remove = append(t.remove, normalizeKey(key))
	return nil
}

// Rollback discards all staged changes and finishes the transaction.
func (t *Transaction) Rollback() {
	t.values = nil
	t.remove = nil
	t.done = true
}

// Commit atomically persists every staged change, then updates the store
// in memory. Either all staged keys become visible or none: the new file
// image is written beside the target and renamed over it, so an injected
// failure mid-commit leaves the previous file intact.
func (t *Transaction) Commit() error {
	if err := t.assertOpen(); err != nil {
		return err
	}
	t.done = true
	if len(t.values) == 0 && len(t.remove) == 0 {
		return nil
	}

	cfg := t.cfg
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	merged := make(map[string]string, len(cfg.values)+len(t.values))
	for k, v := range cfg.values {
		merged[k] = v
	}
	for k, v := range t.values {
		merged[k] = v
	}
	for _, k := range t.remove {
		delete(merged, k)
	}

	image := renderFile(merged, cfg.comments)
	tempPath := cfg.path + ".tmp"
	if err := os.WriteFile(tempPath, image, 0o644); err != nil {
		return errors.Wrap(errors.CodeConfigCommit, "write configuration file", err)
	}
	if err := renameConfig(tempPath, cfg.path); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(errors.CodeConfigCommit, "replace configuration file", err)
	}

	cfg.values = merged
	cfg.exists = true
	return nil
}

func (t *Transaction) assertOpen() error {
	if t.done {
		return fmt.Errorf("configuration transaction already finished")
	}
	return nil
}
