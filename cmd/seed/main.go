package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"punchout-catalog/internal/config"
	"punchout-catalog/internal/db"
	"punchout-catalog/internal/domain"
	"punchout-catalog/internal/logger"
	"punchout-catalog/internal/migrate"
	"punchout-catalog/internal/registry"
	sessionrepo "punchout-catalog/internal/repository/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Seeds a pending session for the first registered buyer so a local
// stack can be exercised end to end without a real procurement system.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	defer zlog.Sync()

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		zlog.Fatal("load buyer registry", zap.Error(err))
	}
	identities := reg.Identities()
	if len(identities) == 0 {
		zlog.Fatal("buyer registry is empty, nothing to seed")
	}
	sort.Strings(identities)
	bs, _ := reg.Lookup(identities[0])

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		zlog.Fatal("apply migrations", zap.Error(err))
	}

	// Token carries the buyer identity prefix so the static verifier
	// resolves it without a directory round trip.
	now := time.Now().UTC()
	sess := domain.PunchOutSession{
		Token:         fmt.Sprintf("%s-%s", bs.Identity, uuid.NewString()),
		BuyerIdentity: bs.Identity,
		ReturnURL:     bs.ReturnURL,
		Protocol:      bs.Protocol,
		Status:        domain.StatusPendingVerification,
		CreatedAt:     now,
		ExpiresAt:     now.Add(cfg.Session.TTL),
	}
	repo := sessionrepo.NewPostgres(pool)
	if err := repo.Create(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			zlog.Fatal("token collision, rerun to generate a fresh one", zap.Error(err))
		}
		zlog.Fatal("seed session", zap.Error(err))
	}

	zlog.Info("seeded pending session",
		zap.String("buyer", bs.Identity),
		zap.String("protocol", bs.Protocol),
		zap.String("token", sess.Token),
		zap.Time("expires_at", sess.ExpiresAt))
	fmt.Println(sess.Token)
}
