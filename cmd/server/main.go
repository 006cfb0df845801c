package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/dispatch"
	"jetgo.dev/internal/game/hideout"
	"jetgo.dev/internal/game/inventory"
	"jetgo.dev/internal/game/item"
	"jetgo.dev/internal/game/profile"
	"jetgo.dev/internal/game/quest"
	"jetgo.dev/internal/game/trading"
	"jetgo.dev/internal/persistence/indexdb"
	persistlog "jetgo.dev/internal/persistence/log"
	"jetgo.dev/internal/persistence/store"
	"jetgo.dev/internal/transport/ws"
	"jetgo.dev/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		contentDir = flag.String("content", "./content", "content directory (items.json, traders/, ...)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <content>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (saves + audit read model)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cnt, err := content.Load(*contentDir)
	if err != nil {
		logger.Fatalf("load content: %v", err)
	}
	logger.Printf("content loaded: %d templates, %d traders, %d quests",
		len(cnt.Templates.Defs), len(cnt.Traders.ByID), len(cnt.Quests.Defs))

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*contentDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Default()
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index backend: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cnt); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer auditLog.Close()

	factory := item.NewFactory(cnt)
	profiles := store.New(*dataDir)
	reg := profile.NewRegistry(indexedStore{inner: profiles, idx: idx})
	reg.Create = profileBootstrap(cnt, factory, tune.Profile, logger)

	dispatcher := dispatch.New(cnt, factory,
		trading.NewService(cnt, factory, tune.TradingConfig()),
		hideout.NewService(cnt, factory),
		quest.NewService(cnt, factory),
		logger)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(cnt, reg, dispatcher, multiAuditor{a: auditLog, b: idx}, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// profileBootstrap builds the Create hook for ids the store has never seen.
// Without a configured stash template unknown ids stay rejected.
func profileBootstrap(cnt *content.Content, factory *item.Factory, cfg tuning.Profile, logger *log.Logger) func(string) (*profile.State, error) {
	if cfg.StashTpl == "" {
		return nil
	}
	return func(id string) (*profile.State, error) {
		root := item.Item{ID: uuid.NewString(), Tpl: cfg.StashTpl}
		inv, err := inventory.NewGrid(cnt, root, nil)
		if err != nil {
			return nil, err
		}
		if cfg.StarterTpl != "" && cfg.StarterCount > 0 {
			stacks, err := factory.CreateItems(cfg.StarterTpl, cfg.StarterCount)
			if err != nil {
				return nil, err
			}
			for _, s := range stacks {
				if err := inv.PlaceItem(s.Item, s.Children, nil); err != nil {
					return nil, err
				}
			}
		}
		items := make([]item.Item, 0, inv.Len())
		for _, it := range inv.Items() {
			items = append(items, it.Clone())
		}
		logger.Printf("bootstrapped profile %s (%d items)", id, len(items))
		return &profile.State{
			ID:        id,
			Inventory: profile.InventoryState{StashRoot: root.ID, Items: items},
		}, nil
	}
}

// indexedStore mirrors successful profile writes into the sqlite index.
type indexedStore struct {
	inner *store.Store
	idx   *indexdb.SQLiteIndex
}

func (s indexedStore) Read(id string) (*profile.State, error) { return s.inner.Read(id) }

func (s indexedStore) Write(st *profile.State) error {
	if err := s.inner.Write(st); err != nil {
		return err
	}
	if s.idx != nil {
		b, _ := json.Marshal(st)
		sum := sha256.Sum256(b)
		s.idx.RecordSave(st.ID, time.Now().Unix(), len(st.Inventory.Items), hex.EncodeToString(sum[:]))
	}
	return nil
}

// multiAuditor fans one audit entry out to the JSONL log and the index.
type multiAuditor struct {
	a *persistlog.AuditLogger
	b *indexdb.SQLiteIndex
}

func (m multiAuditor) WriteAudit(e persistlog.AuditEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteAudit(e)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(e)
	}
	return err
}
