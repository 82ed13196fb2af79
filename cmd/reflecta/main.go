// Package main runs the Reflecta backend: the data-and-protocol core a
// desktop presentation layer attaches to on localhost.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/reflecta/backend/internal/config"
	"github.com/reflecta/backend/internal/journal"
	"github.com/reflecta/backend/internal/logging"
	"github.com/reflecta/backend/internal/media"
	"github.com/reflecta/backend/internal/models"
	"github.com/reflecta/backend/internal/session"
	"github.com/reflecta/backend/internal/state"
	"github.com/reflecta/backend/internal/store"
	syncer "github.com/reflecta/backend/internal/sync"
)

// logNotifier stands in for the presentation layer: every refresh signal
// becomes a log line a UI process can also observe over its own channel.
type logNotifier struct{}

func (logNotifier) RecordAdded(r *models.Reflection) {
	logging.Info("record added", map[string]interface{}{"obj_id": r.ObjID})
}

func (logNotifier) RecordChanged(r *models.Reflection) {
	logging.Debug("record changed", map[string]interface{}{"obj_id": r.ObjID})
}

func (logNotifier) StoreReplaced() {
	logging.Info("store replaced by bootstrap snapshot")
}

func (logNotifier) Waiting(waiting bool) {
	logging.Info("bootstrap waiting state", map[string]interface{}{"waiting": waiting})
}

func main() {
	cfg := config.LoadConfig()
	logging.Init(os.Stdout, logging.LogLevel(cfg.LogLevel))

	db, err := journal.Open(cfg.DataDir)
	if err != nil {
		logging.Error("cannot open journal", err)
		os.Exit(1)
	}
	defer db.Close()
	repo := journal.NewRepository(db.DB)
	defer repo.Close()

	st := store.New()
	fontSize := state.DefaultFontSize
	if saved, err := state.Load(cfg.StatePath()); err != nil {
		logging.Error("cannot resume activity state", err)
	} else {
		st.Replace(saved.Reflections)
		fontSize = saved.FontSize
	}

	pictures := media.NewPictureStore(cfg.PicturesDir())
	sess := session.New()

	if cfg.JoinURL != "" {
		tube, err := session.Dial(cfg.JoinURL)
		if err != nil {
			// channel failure is fatal to sharing, not to the activity
			logging.Error("cannot join shared channel, continuing local-only", err)
		} else if err := sess.Await(tube); err != nil {
			logging.Error("cannot start session", err)
		}
	} else {
		hub := session.NewHub()
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.Handler())
		mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","service":"reflecta"}`))
		})
		go func() {
			if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
				logging.Error("http server stopped", err)
			}
		}()
		if err := sess.Announce(hub); err != nil {
			logging.Error("cannot announce session", err)
		}
	}

	disp := syncer.NewDispatcher(st, sess, pictures, logNotifier{}, repo)
	disp.SetIdentity(cfg.Nick, cfg.Color)
	if sess.Connected() {
		if err := disp.Run(); err != nil {
			logging.Error("cannot start dispatcher", err)
		}
	}

	// Bulk import runs after the session loop is up, the one deliberate
	// yield point, so first paint never waits on a journal scan.
	importJournal := func() {
		entries, err := repo.FindStarred()
		if err != nil {
			logging.Error("journal scan failed", err)
			return
		}
		added := 0
		for _, e := range entries {
			if st.AppendFromJournal(journal.Normalize(e)) {
				added++
			}
		}
		logging.Info("journal import complete",
			map[string]interface{}{"entries": len(entries), "added": added})
	}
	if sess.Connected() {
		disp.Do(importJournal)
	} else {
		importJournal()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-sess.Closed():
	}

	sess.Close()

	saved := &state.ActivityState{
		FontSize:    fontSize,
		Reflections: st.Snapshot(),
	}
	if err := state.Save(cfg.StatePath(), saved); err != nil {
		logging.Error("cannot persist activity state", err)
	}
}
