// Command sessiontoken opens a session for a provider identity and prints a
// bearer token. It stands in for the provider sign-in callback in development.
//
// The tool needs a store shared with the API process, so STORE_DRIVER=memory
// is rejected.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/auth"
	"github.com/spec-kit/profile-service/internal/bootstrap"
	"github.com/spec-kit/profile-service/internal/config"
	"github.com/spec-kit/profile-service/internal/domain"
	"github.com/spec-kit/profile-service/internal/observability"
	"github.com/spec-kit/profile-service/internal/persistence"
	"github.com/spec-kit/profile-service/internal/service"
)

func main() {
	externalID := flag.String("external-id", "", "provider identity of the user (required)")
	firstName := flag.String("first-name", "", "first name used when the user is provisioned")
	lastName := flag.String("last-name", "", "last name used when the user is provisioned")
	email := flag.String("email", "", "email used when the user is provisioned")
	flag.Parse()

	if *externalID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := checkSharedStore(cfg.Store); err != nil {
		log.Fatal(err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := bootstrap.OpenUserStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open user store", zap.Error(err))
	}
	defer closeStore()

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis is required to open sessions", zap.Error(err))
	}
	defer redis.Close()

	sessions := service.NewSessionService(service.SessionDependencies{
		UserRepo:    store,
		Provisioner: store,
		Sessions:    auth.NewRedisSessionStore(redis.Client),
		Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		Logger:      logger,
	})

	user, token, err := sessions.SignIn(ctx, domain.User{
		ExternalID: *externalID,
		FirstName:  *firstName,
		LastName:   *lastName,
		Email:      *email,
	}, domain.ProviderFacebook)
	if err != nil {
		logger.Fatal("sign in failed", zap.Error(err))
	}

	fmt.Fprintf(os.Stderr, "user %s (registrationDone=%t)\n", user.ID, user.RegistrationDone)
	fmt.Println(token)
}

// checkSharedStore rejects drivers whose users would only live in this process.
func checkSharedStore(store config.StoreConfig) error {
	if store.Driver == config.StoreMemory {
		return errors.New("STORE_DRIVER=memory keeps users inside one process; " +
			"point the tool at the same mongo or postgres store as the API")
	}
	return nil
}
