package httpservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ark-network/giveaway/internal/config"
	interfaces "github.com/ark-network/giveaway/internal/interface"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type service struct {
	config    Config
	appConfig *config.Config
	server    *http.Server
}

func NewService(
	svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{svcConfig, appConfig, nil}, nil
}

func (s *service) Start() error {
	tlsConfig, err := s.config.tlsConfig()
	if err != nil {
		return err
	}

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return err
	}

	routerConfig := RouterConfig{
		AppService:   appSvc,
		AdminService: s.appConfig.AdminService(),
		JWTSecret:    s.appConfig.JWTSecret,
		AdminAddress: s.appConfig.AdminAddress,
	}
	if s.config.DevLedger {
		routerConfig.Ledger = s.appConfig.Ledger()
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(routerConfig)
	if err != nil {
		return err
	}

	if err := appSvc.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %s", err)
	}
	log.Info("started app service")

	s.server = &http.Server{
		Addr:              s.config.address(),
		Handler:           router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if s.config.insecure() {
			err = s.server.ListenAndServe()
		} else {
			err = s.server.ListenAndServeTLS("", "")
		}
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
		}
	}()
	log.Infof("started listening at %s", s.config.address())

	return nil
}

func (s *service) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:all
		s.server.Shutdown(ctx)
		log.Info("stopped http server")
	}

	appSvc, _ := s.appConfig.AppService()
	if appSvc != nil {
		appSvc.Stop()
		log.Info("stopped app service")
	}
}
