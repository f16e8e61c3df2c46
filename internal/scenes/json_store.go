package scenes

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/micro-nova/bias-go/internal/models"
)

const (
	storeVersion    = 1
	presetsFileName = "presets.json"
	firstPresetID   = 1

	// selfWriteWindow suppresses fsnotify events caused by our own
	// atomic rename.
	selfWriteWindow = 2 * time.Second
)

// document is the on-disk shape of the preset collection. next_id is
// persisted so ids stay monotonic across deletes and restarts.
type document struct {
	Version int             `json:"version"`
	NextID  int             `json:"next_id"`
	Scenes  []models.Preset `json:"scenes"`
}

// JSONStore keeps the preset collection in one JSON document per device
// instance. Every mutation rewrites the whole document atomically
// (temp file + rename); a corrupt document loads as an empty store and
// surfaces a StorageError without fabricating data.
type JSONStore struct {
	mu       sync.Mutex
	path     string
	channels int

	scenes  []models.Preset
	nextID  int
	savedAt time.Time

	watcher *fsnotify.Watcher
}

// NewJSONStore opens (or initializes) the preset store in configDir.
// channels is the device's output count, used to validate presets. If
// the existing document is unreadable the store comes up empty and the
// error is returned alongside the usable store.
func NewJSONStore(configDir string, channels int) (*JSONStore, error) {
	if channels <= 0 {
		channels = models.DefaultChannels
	}
	s := &JSONStore{
		path:     filepath.Join(configDir, presetsFileName),
		channels: channels,
		nextID:   firstPresetID,
	}
	loadErr := s.load()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("scenes: could not create fsnotify watcher", "err", err)
		return s, loadErr
	}
	s.watcher = watcher
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		slog.Warn("scenes: could not watch config dir", "err", err)
	}
	go s.watchLoop()

	return s, loadErr
}

// Path returns the document path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Close stops the file watcher.
func (s *JSONStore) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *JSONStore) Create(p models.Preset) (models.Preset, error) {
	if err := p.Validate(s.channels); err != nil {
		return models.Preset{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p.ID = s.nextID
	p.CreatedAt = now
	p.UpdatedAt = now

	next := append(s.copyScenes(), p)
	if err := s.persist(next, s.nextID+1); err != nil {
		return models.Preset{}, err
	}
	slog.Info("scenes: created preset", "id", p.ID, "name", p.Name)
	return p.DeepCopy(), nil
}

func (s *JSONStore) Get(id int) (models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.scenes {
		if p.ID == id {
			return p.DeepCopy(), nil
		}
	}
	return models.Preset{}, ErrNotFound
}

func (s *JSONStore) List() ([]models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Preset, len(s.scenes))
	for i, p := range s.scenes {
		out[i] = p.DeepCopy()
	}
	return out, nil
}

func (s *JSONStore) Update(id int, p models.Preset) (models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyScenes()
	idx := indexOf(next, id)
	if idx < 0 {
		return models.Preset{}, ErrNotFound
	}

	upd := next[idx]
	upd.OutputChannels = p.OutputChannels
	upd.Standby = p.Standby
	if p.Name != "" {
		upd.Name = p.Name
	}
	upd.UpdatedAt = time.Now().UTC()
	if err := upd.Validate(s.channels); err != nil {
		return models.Preset{}, err
	}
	next[idx] = upd

	if err := s.persist(next, s.nextID); err != nil {
		return models.Preset{}, err
	}
	slog.Info("scenes: updated preset", "id", id)
	return upd.DeepCopy(), nil
}

func (s *JSONStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyScenes()
	idx := indexOf(next, id)
	if idx < 0 {
		return ErrNotFound
	}
	next = append(next[:idx], next[idx+1:]...)

	if err := s.persist(next, s.nextID); err != nil {
		return err
	}
	slog.Info("scenes: deleted preset", "id", id)
	return nil
}

func (s *JSONStore) Rename(id int, name string) (models.Preset, error) {
	if strings.TrimSpace(name) == "" {
		return models.Preset{}, &models.ValidationError{Msg: "preset name must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyScenes()
	idx := indexOf(next, id)
	if idx < 0 {
		return models.Preset{}, ErrNotFound
	}
	old := next[idx].Name
	next[idx].Name = strings.TrimSpace(name)
	next[idx].UpdatedAt = time.Now().UTC()

	if err := s.persist(next, s.nextID); err != nil {
		return models.Preset{}, err
	}
	slog.Info("scenes: renamed preset", "id", id, "from", old, "to", next[idx].Name)
	return next[idx].DeepCopy(), nil
}

// load reads the document from disk. A missing file is a fresh store; a
// corrupt one fails closed as empty and reports a StorageError.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &models.StorageError{Op: "read " + s.path, Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.scenes = nil
		s.nextID = firstPresetID
		return &models.StorageError{Op: "parse " + s.path, Err: err}
	}
	for _, p := range doc.Scenes {
		if err := p.Validate(s.channels); err != nil {
			s.scenes = nil
			s.nextID = firstPresetID
			return &models.StorageError{Op: fmt.Sprintf("load preset %d from %s", p.ID, s.path), Err: err}
		}
	}

	s.scenes = doc.Scenes
	s.nextID = doc.NextID
	if s.nextID < firstPresetID {
		// Older documents predate next_id; derive it.
		for _, p := range doc.Scenes {
			if p.ID >= s.nextID {
				s.nextID = p.ID + 1
			}
		}
		if s.nextID < firstPresetID {
			s.nextID = firstPresetID
		}
	}
	return nil
}

// persist writes the candidate collection atomically and commits it to
// memory only on success, so a failed write never corrupts the
// in-memory collection. Must be called with mu held.
func (s *JSONStore) persist(scenes []models.Preset, nextID int) error {
	doc := document{Version: storeVersion, NextID: nextID, Scenes: scenes}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &models.StorageError{Op: "encode presets", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return &models.StorageError{Op: "create config dir", Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &models.StorageError{Op: "write " + tmp, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &models.StorageError{Op: "rename " + tmp, Err: err}
	}

	s.scenes = scenes
	s.nextID = nextID
	s.savedAt = time.Now()
	return nil
}

// reload re-reads the document after an external edit, keeping the
// current collection if the new document does not parse.
func (s *JSONStore) reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.savedAt) < selfWriteWindow {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("scenes: reload failed", "path", s.path, "err", err)
		return
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("scenes: external edit does not parse, keeping current presets", "path", s.path, "err", err)
		return
	}
	for _, p := range doc.Scenes {
		if err := p.Validate(s.channels); err != nil {
			slog.Warn("scenes: external edit holds an invalid preset, keeping current presets",
				"path", s.path, "id", p.ID, "err", err)
			return
		}
	}

	s.scenes = doc.Scenes
	if doc.NextID > s.nextID {
		s.nextID = doc.NextID
	}
	slog.Info("scenes: reloaded presets after external edit", "count", len(s.scenes))
}

func (s *JSONStore) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name == s.path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)) {
				s.reload()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("scenes: watcher error", "err", err)
		}
	}
}

func (s *JSONStore) copyScenes() []models.Preset {
	next := make([]models.Preset, len(s.scenes))
	for i, p := range s.scenes {
		next[i] = p.DeepCopy()
	}
	return next
}

func indexOf(scenes []models.Preset, id int) int {
	for i, p := range scenes {
		if p.ID == id {
			return i
		}
	}
	return -1
}
