// FFI bridge for mobile platforms. Build as a shared library:
// librepstack.so (Android) / repstack.framework (iOS). The Dart shell
// calls Init once at startup and routes every domain operation through
// the exported functions in exports.go.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	stdsync "sync"
	"unsafe"

	"github.com/repstack/backend/internal/config"
	"github.com/repstack/backend/internal/connectivity"
	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/logging"
	"github.com/repstack/backend/internal/services"
	syncpkg "github.com/repstack/backend/internal/sync"
	"github.com/repstack/backend/internal/sync/queue"
	"github.com/repstack/backend/internal/sync/scheduler"
	"github.com/repstack/backend/internal/telemetry"
)

// core holds the wired engine. Built once by Init.
type core struct {
	database   *db.DB
	repo       *db.Repository
	queue      *queue.Queue
	checker    *connectivity.StaticChecker
	dispatcher *syncpkg.Dispatcher
	scheduler  *scheduler.Scheduler
	cancel     context.CancelFunc

	folders  *services.FolderService
	macros   *services.MacroService
	workouts *services.WorkoutService
	prefs    *services.PreferencesService
}

var (
	once    stdsync.Once
	engine  *core
	lastErr string
	lastMu  stdsync.RWMutex
)

//export Init
// Init initializes the RepStack core: database, migrations and the sync
// engine. dataDir is where the SQLite file lives; the host app passes
// its documents directory. Returns 0 on success.
func Init(dataDir *C.char) int32 {
	ok := int32(1)
	once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			setLastError(fmt.Sprintf("Failed to load config: %v", err))
			return
		}
		if dir := C.GoString(dataDir); dir != "" {
			cfg.DataDir = dir
		}

		logging.Init(os.Stdout, logging.LogLevel(cfg.LogLevel))
		if cfg.TelemetryEnabled {
			telemetry.Enable()
		}

		database, err := db.Open(cfg.DataDir)
		if err != nil {
			setLastError(fmt.Sprintf("Failed to open database: %v", err))
			return
		}

		migrator := db.NewMigrator(database.DB)
		if err := migrator.Initialize(); err != nil {
			setLastError(fmt.Sprintf("Failed to initialize migrator: %v", err))
			return
		}
		if err := migrator.Up(); err != nil {
			setLastError(fmt.Sprintf("Failed to apply migrations: %v", err))
			return
		}

		repo := db.NewRepository(database.DB)

		q := queue.New(database.DB, queue.Options{
			MaxAttempts: cfg.MaxAttempts,
			BackoffBase: cfg.BackoffBase,
			BackoffCap:  cfg.BackoffCap,
		})

		// The host platform owns connectivity: it pushes status changes
		// through SetNetworkStatus instead of the core probing.
		checker := connectivity.NewStaticChecker(connectivity.Online())
		endpoint := syncpkg.NewHTTPEndpoint(cfg.SyncEndpointURL, cfg.SyncTimeout)
		dispatcher := syncpkg.NewDispatcher(checker, endpoint, q, cfg.SyncTimeout)
		drainer := syncpkg.NewDrainer(q, checker, endpoint, cfg.DrainBatchSize, nil)
		sched := scheduler.New(drainer, &scheduler.Config{DrainInterval: cfg.DrainInterval})

		ctx, cancel := context.WithCancel(context.Background())
		sched.Start(ctx)

		engine = &core{
			database:   database,
			repo:       repo,
			queue:      q,
			checker:    checker,
			dispatcher: dispatcher,
			scheduler:  sched,
			cancel:     cancel,
			folders:    services.NewFolderService(repo, dispatcher),
			macros:     services.NewMacroService(repo, dispatcher),
			workouts:   services.NewWorkoutService(repo, dispatcher),
			prefs:      services.NewPreferencesService(repo, dispatcher, cfg.PrefsDebounce),
		}
		ok = 0
	})
	if engine != nil {
		ok = 0
	}
	return ok
}

//export Cleanup
// Cleanup flushes pending writes and releases resources.
func Cleanup() {
	if engine == nil {
		return
	}
	engine.prefs.Close()
	engine.scheduler.Stop()
	engine.cancel()
	engine.dispatcher.Wait()
	engine.repo.Close()
	engine.database.Close()
}

//export GetLastError
// GetLastError returns the last error message. The caller frees the
// returned string with FreeString.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()
	return C.CString(lastErr)
}

//export FreeString
// FreeString frees a string allocated by Go.
func FreeString(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

func setLastError(err string) {
	lastMu.Lock()
	defer lastMu.Unlock()
	lastErr = err
}

// cJSON marshals v and hands ownership of the C string to the caller.
// A marshal failure records the error and returns nil.
func cJSON(v interface{}) *C.char {
	data, err := json.Marshal(v)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

func main() {
	// Required for c-shared build mode; never executed as a library.
}
