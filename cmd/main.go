package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-multierror"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/practice-sem-2/chat-service/internal/auth"
	"github.com/practice-sem-2/chat-service/internal/realtime"
	"github.com/practice-sem-2/chat-service/internal/server"
	storage "github.com/practice-sem-2/chat-service/internal/storages"
	"github.com/practice-sem-2/chat-service/internal/updates"
	usecase "github.com/practice-sem-2/chat-service/internal/usecases"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func initLogger(level string) *logrus.Logger {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.
			WithField("log_level", level).
			Warning("specified invalid log level")
	} else {
		logger.SetLevel(logLevel)
		logger.
			WithField("log_level", level).
			Infof("specified %s log level", logLevel.String())
	}

	return logger
}

func initConfig() {
	viper.AutomaticEnv()
	viper.SetDefault("STORAGE", "postgres")
	viper.SetDefault("UPDATES_TOPIC", "chat-updates")
	viper.SetDefault("CHAT_CONCEAL_FOREIGN", false)
	viper.SetDefault("WS_SEND_BUFFER", 64)
	viper.SetDefault("WS_MESSAGES_PER_SECOND", 10)
	viper.SetDefault("WS_MESSAGES_BURST", 20)
	viper.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)
}

func initDB(dsn string, logger *logrus.Logger) *sqlx.DB {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		logger.Fatalf("can't connect to database: %s", err.Error())
	}

	err = db.Ping()

	if err != nil {
		logger.Fatalf("database ping failed: %s", err.Error())
	}

	logger.Info("successfully connected to database")
	return db
}

func initMigrations(dsn string, logger *logrus.Logger) {
	dir := viper.GetString("MIGRATIONS_DIR")
	if dir == "" {
		return
	}

	if err := storage.Migrate(dir, dsn); err != nil {
		logger.WithError(err).Fatal("can't apply migrations")
	}
	logger.WithField("dir", dir).Info("migrations applied")
}

// initStorage returns the registry and a function releasing its resources.
func initStorage(logger *logrus.Logger) (storage.Registry, func() error) {
	switch kind := viper.GetString("STORAGE"); kind {
	case "memory":
		logger.Warn("using in-memory storage, data won't survive a restart")
		return storage.NewMemoryRegistry(), func() error { return nil }
	case "postgres":
		dsn := viper.GetString("DB_DSN")
		db := initDB(dsn, logger)
		initMigrations(dsn, logger)
		return storage.NewRegistry(db), db.Close
	default:
		logger.WithField("storage", kind).Fatal("unknown storage kind")
		return nil, nil
	}
}

func initProducer(logger *logrus.Logger) sarama.SyncProducer {
	brokers := viper.GetString("KAFKA_BROKERS")
	if len(brokers) == 0 {
		logger.Warn("KAFKA_BROKERS is not set, updates won't be streamed to kafka")
		return nil
	}

	addrs := strings.Split(brokers, ",")
	config := sarama.NewConfig()
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Timeout = 10 * time.Second
	config.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(addrs, config)

	if err != nil {
		logger.WithError(err).Fatalf("can't create producer")
	}

	return producer
}

func initVerifier(logger *logrus.Logger) auth.Verifier {
	if path := viper.GetString("JWT_PUBLIC_KEY_PATH"); path != "" {
		verifier, err := auth.NewVerifierFromFile(path)
		if err != nil {
			logger.Fatalf("verifier can't read public key: %s", err.Error())
		}
		return verifier
	}

	verifier, err := auth.NewHMACVerifier([]byte(viper.GetString("JWT_SECRET")))
	if err != nil {
		logger.Fatalf("either JWT_PUBLIC_KEY_PATH or JWT_SECRET must be defined: %s", err.Error())
	}
	return verifier
}

func initHealthServer(address string, logger *logrus.Logger) (*server.HealthServer, net.Listener) {

	listener, err := net.Listen("tcp", address)
	logger.Infof("grpc health server listening on %s", address)

	if err != nil {
		logger.Fatalf("can't listen to address: %s", err.Error())
	}

	return server.NewHealthServer(logger), listener
}

func main() {
	initConfig()

	var host string
	var port int
	var grpcPort int
	var logLevel string

	flag.IntVar(&port, "port", 80, "port on which http server will be started")
	flag.IntVar(&grpcPort, "grpc-port", 81, "port on which grpc health server will be started")
	flag.StringVar(&host, "host", "0.0.0.0", "host on which servers will be started")
	flag.StringVar(&logLevel, "log", "info", "log level")

	flag.Parse()

	logger := initLogger(logLevel)
	validate := validator.New()

	store, closeStore := initStorage(logger)

	bus := updates.NewBus(validate)
	producer := initProducer(logger)
	if producer != nil {
		bus.Subscribe(updates.NewKafkaPublisher(producer, &updates.KafkaConfig{
			UpdatesTopic: viper.GetString("UPDATES_TOPIC"),
		}))
	}

	chatsUsecase := usecase.NewChatsUsecase(store, bus, logger,
		usecase.WithConcealedChats(viper.GetBool("CHAT_CONCEAL_FOREIGN")))
	verifier := initVerifier(logger)

	connections := realtime.NewRegistry()
	gateway := realtime.NewGateway(chatsUsecase, verifier, connections, validate, realtime.Config{
		SendBuffer:        viper.GetInt("WS_SEND_BUFFER"),
		MessagesPerSecond: viper.GetFloat64("WS_MESSAGES_PER_SECOND"),
		MessagesBurst:     viper.GetInt("WS_MESSAGES_BURST"),
	}, logger.WithField("component", "gateway"))
	bus.Subscribe(gateway)

	health, lis := initHealthServer(fmt.Sprintf("%s:%d", host, grpcPort), logger)
	go func() {
		if err := health.Serve(lis); err != nil {
			logger.Fatalf("grpc serving error: %s", err.Error())
		}
	}()

	chats := server.NewChatServer(chatsUsecase, verifier, validate, logger.WithField("component", "http"))
	app := fiber.New(fiber.Config{
		AppName:               "chat-service",
		DisableStartupMessage: true,
		ErrorHandler:          chats.ErrorHandler,
	})
	app.Get("/health", health.Check)
	gateway.Register(app)
	chats.Register(app)

	address := fmt.Sprintf("%s:%d", host, port)
	go func() {
		logger.Infof("http server listening on %s", address)
		if err := app.Listen(address); err != nil {
			logger.Fatalf("http serving error: %s", err.Error())
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		viper.GetDuration("SHUTDOWN_TIMEOUT"),
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				connections.Close()
				return app.ShutdownWithContext(ctx)
			},
			"grpc": func(ctx context.Context) error {
				health.Shutdown()
				return nil
			},
		},
	)

	exitCode := <-wait

	var result *multierror.Error
	if producer != nil {
		result = multierror.Append(result, producer.Close())
	}
	result = multierror.Append(result, closeStore())
	if err := result.ErrorOrNil(); err != nil {
		logger.WithError(err).Error("failed to release resources")
		exitCode = 1
	}

	logger.WithField("exit_code", exitCode).Info("chat service stopped")
	os.Exit(exitCode)
}
