package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ark-network/giveaway/internal/core/application"
	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/ark-network/giveaway/internal/infrastructure/db"
	"github.com/ark-network/giveaway/internal/infrastructure/ledger"
	inmemorylivestore "github.com/ark-network/giveaway/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/ark-network/giveaway/internal/infrastructure/live-store/redis"
	httporacle "github.com/ark-network/giveaway/internal/infrastructure/oracle/http"
	localoracle "github.com/ark-network/giveaway/internal/infrastructure/oracle/local"
	timescheduler "github.com/ark-network/giveaway/internal/infrastructure/scheduler/gocron"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedEventDbs = supportedType{
		"watermill": {},
	}
	supportedDbs = supportedType{
		"badger": {},
		"sqlite": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
	supportedLedgers = supportedType{
		"inmemory": {},
	}
	supportedOracles = supportedType{
		"local": {},
		"http":  {},
	}

	prizeCollections = []struct {
		tier   domain.Tier
		name   string
		symbol string
	}{
		{domain.Gold, "Gold 3327", "G3327"},
		{domain.Silver, "Silver 3327", "S3327"},
		{domain.Bronze, "Bronze 3327", "B3327"},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	NoTLS    bool
	LogLevel int

	DbType        string
	EventDbType   string
	DbDir         string
	SchedulerType string
	LiveStoreType string
	RedisUrl      string
	RedisRetries  int
	AutoDraw      bool

	AdminAddress  string
	EngineAddress string
	JWTSecret     string `json:"-"`

	LedgerType     string
	LedgerTokens   []string
	VaultInventory int

	OracleType        string
	OracleAddress     string
	OracleURL         string
	OracleCallbackURL string
	OracleKey         string `json:"-"`
	OracleDelay       time.Duration
	OracleRetries     uint64
	OracleFee         uint64
	FeeToken          string
	FeeAccount        string

	repo      ports.RepoManager
	svc       application.Service
	adminSvc  application.AdminService
	scheduler ports.SchedulerService
	liveStore ports.LiveStore
	ledger    *ledger.Ledger
	assets    ports.AssetProvider
	vaults    []ports.PrizeVault
	oracle    ports.RandomnessOracle
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir           = "DATADIR"
	Port              = "PORT"
	NoTLS             = "NO_TLS"
	LogLevel          = "LOG_LEVEL"
	DbType            = "DB_TYPE"
	EventDbType       = "EVENT_DB_TYPE"
	SchedulerType     = "SCHEDULER_TYPE"
	LiveStoreType     = "LIVE_STORE_TYPE"
	RedisUrl          = "REDIS_URL"
	RedisNumOfRetries = "REDIS_NUM_OF_RETRIES"
	AutoDraw          = "AUTO_DRAW"
	AdminAddress      = "ADMIN_ADDRESS"
	EngineAddress     = "ENGINE_ADDRESS"
	JWTSecret         = "JWT_SECRET"
	LedgerType        = "LEDGER_TYPE"
	LedgerTokens      = "LEDGER_TOKENS"
	VaultInventory    = "VAULT_INVENTORY"
	OracleType        = "ORACLE_TYPE"
	OracleAddress     = "ORACLE_ADDRESS"
	OracleURL         = "ORACLE_URL"
	OracleCallbackURL = "ORACLE_CALLBACK_URL"
	OracleKey         = "ORACLE_KEY"
	OracleDelay       = "ORACLE_DELAY"
	OracleRetries     = "ORACLE_NUM_OF_RETRIES"
	OracleFee         = "ORACLE_FEE"
	FeeToken          = "FEE_TOKEN"
	FeeAccount        = "FEE_ACCOUNT"

	defaultDatadir        = appDataDir("giveawayd")
	DefaultPort           = 7171
	defaultNoTLS          = true
	defaultLogLevel       = 4
	defaultDbType         = "badger"
	defaultEventDbType    = "watermill"
	defaultSchedulerType  = "gocron"
	defaultLiveStoreType  = "inmemory"
	defaultRedisRetries   = 5
	defaultAutoDraw       = false
	defaultEngineAddress  = "0x0000000000000000000000000000000000000001"
	defaultLedgerType     = "inmemory"
	defaultVaultInventory = 3
	defaultOracleType     = "local"
	defaultOracleDelay    = 2 * time.Second
	defaultOracleRetries  = 3
	defaultOracleTimeout  = 10 * time.Second
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("GIVEAWAY")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(NoTLS, defaultNoTLS)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(EventDbType, defaultEventDbType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(LiveStoreType, defaultLiveStoreType)
	viper.SetDefault(RedisNumOfRetries, defaultRedisRetries)
	viper.SetDefault(AutoDraw, defaultAutoDraw)
	viper.SetDefault(EngineAddress, defaultEngineAddress)
	viper.SetDefault(LedgerType, defaultLedgerType)
	viper.SetDefault(VaultInventory, defaultVaultInventory)
	viper.SetDefault(OracleType, defaultOracleType)
	viper.SetDefault(OracleDelay, defaultOracleDelay)
	viper.SetDefault(OracleRetries, defaultOracleRetries)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	dbPath := filepath.Join(viper.GetString(Datadir), "db")

	return &Config{
		Datadir:           viper.GetString(Datadir),
		Port:              viper.GetUint32(Port),
		NoTLS:             viper.GetBool(NoTLS),
		LogLevel:          viper.GetInt(LogLevel),
		DbType:            viper.GetString(DbType),
		EventDbType:       viper.GetString(EventDbType),
		DbDir:             dbPath,
		SchedulerType:     viper.GetString(SchedulerType),
		LiveStoreType:     viper.GetString(LiveStoreType),
		RedisUrl:          viper.GetString(RedisUrl),
		RedisRetries:      viper.GetInt(RedisNumOfRetries),
		AutoDraw:          viper.GetBool(AutoDraw),
		AdminAddress:      viper.GetString(AdminAddress),
		EngineAddress:     viper.GetString(EngineAddress),
		JWTSecret:         viper.GetString(JWTSecret),
		LedgerType:        viper.GetString(LedgerType),
		LedgerTokens:      splitList(viper.GetString(LedgerTokens)),
		VaultInventory:    viper.GetInt(VaultInventory),
		OracleType:        viper.GetString(OracleType),
		OracleAddress:     viper.GetString(OracleAddress),
		OracleURL:         viper.GetString(OracleURL),
		OracleCallbackURL: viper.GetString(OracleCallbackURL),
		OracleKey:         viper.GetString(OracleKey),
		OracleDelay:       viper.GetDuration(OracleDelay),
		OracleRetries:     viper.GetUint64(OracleRetries),
		OracleFee:         viper.GetUint64(OracleFee),
		FeeToken:          viper.GetString(FeeToken),
		FeeAccount:        viper.GetString(FeeAccount),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf("event db type not supported, please select one of: %s", supportedEventDbs)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf("live store type not supported, please select one of: %s", supportedLiveStores)
	}
	if !supportedLedgers.supports(c.LedgerType) {
		return fmt.Errorf("ledger type not supported, please select one of: %s", supportedLedgers)
	}
	if !supportedOracles.supports(c.OracleType) {
		return fmt.Errorf("oracle type not supported, please select one of: %s", supportedOracles)
	}
	if _, err := domain.NormalizeAddress(c.AdminAddress); err != nil {
		return fmt.Errorf("invalid admin address: %s", err)
	}
	if _, err := domain.NormalizeAddress(c.EngineAddress); err != nil {
		return fmt.Errorf("invalid engine address: %s", err)
	}
	if len(c.JWTSecret) <= 0 {
		return fmt.Errorf("missing jwt secret")
	}
	if c.LiveStoreType == "redis" && len(c.RedisUrl) <= 0 {
		return fmt.Errorf("missing redis url")
	}
	if c.VaultInventory < 0 {
		return fmt.Errorf("invalid vault inventory, must not be negative")
	}
	if c.OracleFee > 0 && len(c.FeeToken) <= 0 {
		return fmt.Errorf("missing fee token, required with a non-zero oracle fee")
	}
	if c.OracleType == "http" {
		if len(c.OracleURL) <= 0 {
			return fmt.Errorf("missing oracle url")
		}
		if len(c.OracleAddress) <= 0 {
			return fmt.Errorf("missing oracle address")
		}
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.oracleService(); err != nil {
		return err
	}
	if err := c.appService(); err != nil {
		return err
	}
	if err := c.adminService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AdminService() application.AdminService {
	return c.adminSvc
}

// Ledger returns the in-process ledger backing assets and prize vaults.
func (c *Config) Ledger() *ledger.Ledger {
	return c.ledger
}

func (c *Config) OracleService() ports.RandomnessOracle {
	return c.oracle
}

func (c *Config) repoManager() error {
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "watermill":
		eventStoreConfig = []interface{}{}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		if err := makeDirectoryIfNotExists(c.DbDir); err != nil {
			return err
		}
		dataStoreConfig = []interface{}{c.DbDir}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	switch c.LiveStoreType {
	case "inmemory":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid redis url: %s", err)
		}
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %s", err)
		}
		liveStoreSvc = redislivestore.NewLiveStore(rdb, c.RedisRetries)
	default:
		return fmt.Errorf("unknown liveStore type")
	}

	c.liveStore = liveStoreSvc
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}

	c.scheduler = svc
	return nil
}

// ledgerService sets up the token book and the three prize vaults. Vault
// inventory is minted by the admin, who then hands control to the engine.
func (c *Config) ledgerService() error {
	tokens := append([]string{}, c.LedgerTokens...)
	if len(c.FeeToken) > 0 {
		tokens = append(tokens, c.FeeToken)
	}
	book, err := ledger.NewLedger(tokens...)
	if err != nil {
		return err
	}

	assets, err := ledger.NewAssetProvider(book, c.EngineAddress)
	if err != nil {
		return err
	}

	vaults := make([]ports.PrizeVault, 0, len(prizeCollections))
	for _, collection := range prizeCollections {
		vault, err := ledger.NewVault(
			collection.tier, collection.name, collection.symbol, c.AdminAddress,
		)
		if err != nil {
			return err
		}
		if _, err := vault.Mint(c.AdminAddress, c.VaultInventory); err != nil {
			return err
		}
		if err := vault.TransferControl(c.AdminAddress, c.EngineAddress); err != nil {
			return err
		}
		vaults = append(vaults, vault.As(c.EngineAddress))
	}

	c.ledger = book
	c.assets = assets
	c.vaults = vaults
	return nil
}

func (c *Config) oracleService() error {
	var svc ports.RandomnessOracle
	var err error
	switch c.OracleType {
	case "local":
		svc, err = localoracle.NewOracle(c.OracleKey, c.OracleDelay)
	case "http":
		svc, err = httporacle.NewOracle(
			c.OracleURL, c.OracleAddress, c.OracleRetries, defaultOracleTimeout,
		)
	default:
		err = fmt.Errorf("unknown oracle type")
	}
	if err != nil {
		return err
	}

	if c.OracleType == "local" && len(c.OracleAddress) > 0 {
		if !strings.EqualFold(c.OracleAddress, svc.Address()) {
			return fmt.Errorf(
				"oracle address %s does not match oracle key, expected %s",
				c.OracleAddress, svc.Address(),
			)
		}
	}

	c.oracle = svc
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		application.Addresses{
			Engine:     c.EngineAddress,
			Admin:      c.AdminAddress,
			FeeAccount: c.FeeAccount,
		},
		c.OracleFee, c.FeeToken, c.AutoDraw,
		c.repo, c.liveStore, c.assets, c.vaults, c.oracle, c.scheduler,
		c.callbackURL(),
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) adminService() error {
	adminSvc, err := application.NewAdminService(c.svc)
	if err != nil {
		return err
	}
	c.adminSvc = adminSvc
	return nil
}

func (c *Config) callbackURL() string {
	if len(c.OracleCallbackURL) > 0 {
		return c.OracleCallbackURL
	}
	scheme := "https"
	if c.NoTLS {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("localhost:%d", c.Port),
		Path:   "/v1/oracle/fulfill",
	}
	return u.String()
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

func splitList(value string) []string {
	list := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); len(item) > 0 {
			list = append(list, item)
		}
	}
	return list
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
