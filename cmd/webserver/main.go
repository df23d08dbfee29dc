// The form page loads web/static/formwasm.wasm and wasm_exec.js; build both with go generate.
//
//go:generate sh -c "GOOS=js GOARCH=wasm go build -o ../../web/static/formwasm.wasm ../formwasm"
//go:generate sh -c "cp \"$(go env GOROOT)/lib/wasm/wasm_exec.js\" ../../web/static/"
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/gorilla/handlers"
	redisDriver "github.com/redis/go-redis/v9"

	"crosspost/internal/auth"
	"crosspost/internal/config"
	"crosspost/internal/handlers/webserver"
	appKafka "crosspost/internal/kafka"
	"crosspost/internal/posttypes"
	appRedis "crosspost/internal/redis"
	"crosspost/internal/services"
	"crosspost/internal/storage"
)

func main() {
	// 1. 加载配置
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Printf("%s v%s 配置加载成功。", cfg.AppName, cfg.AppVersion)
	if cfg.Auth.PasswordHash == "" {
		log.Println("警告：AUTH.PASSWORD_HASH 未设置，无法登录。使用 admin hash-password 生成。")
	}

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database, cfg.LogLevel)
	if err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Printf("警告：数据库表迁移可能失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("无法获取数据库连接: %v", err)
	}
	defer sqlDB.Close()

	// 3. 初始化 Redis Client 和会话吊销存储
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	var revoked auth.RevocationStore
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// sessions still expire; logout only clears the cookie
		log.Printf("警告：无法连接到 Redis，登出不会吊销令牌: %v", err)
	} else {
		log.Println("成功连接到 Redis")
		revoked = appRedis.NewRedisRevocationStore(redisClient)
	}

	// 4. 初始化 Kafka Producer
	log.Printf("Kafka brokers: %v, post topic: %s", cfg.Kafka.Brokers, cfg.Kafka.PostTopic)
	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("无法创建 Kafka 生产者: %v", err)
	}
	defer kfkProducer.Close()

	// 5. 初始化存储服务
	var storageService posttypes.StorageService
	uploadsURL := strings.TrimSuffix(cfg.Server.BaseURL, "/") + strings.TrimSuffix(webserver.UploadsPath, "/")
	switch cfg.Storage.Type {
	case "local":
		storageService, err = storage.NewLocalStorageService(cfg.Storage, uploadsURL)
		if err != nil {
			log.Fatalf("无法初始化本地存储服务: %v", err)
		}
	default:
		log.Fatalf("不支持的存储类型: %s", cfg.Storage.Type)
	}

	// 6. 初始化 Services
	postRepo := storage.NewGormScheduledPostRepository(db)
	dispatcher := services.NewKafkaDispatcher(kfkProducer, cfg.Kafka.PostTopic)
	postService := services.NewPostService(postRepo, dispatcher)
	authService := services.NewAuthService(cfg.Auth, revoked)
	scheduler := services.NewScheduler(postRepo, dispatcher, cfg.Post.SchedulerInterval)

	// 7. 初始化 Handlers 和路由
	pages, err := webserver.NewPages(pongo2.Context{"appName": cfg.AppName, "version": cfg.AppVersion})
	if err != nil {
		log.Fatalf("无法加载页面模板: %v", err)
	}
	r := webserver.NewRouter(webserver.Routes{
		Form: webserver.NewFormHandler(postService, storageService, pages, cfg),
		Auth: webserver.NewAuthHandler(authService, pages, cfg.Auth, cfg.Server.BaseURL),
		Health: webserver.NewHealthHandler(cfg.AppVersion, map[string]webserver.Pinger{
			"database": sqlDB.PingContext,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}),
		Authenticator: authService,
		StaticDir:     cfg.Server.StaticPath,
		UploadsDir:    cfg.Storage.LocalPath,
	})

	// 8. 启动定时帖子调度器
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(schedulerCtx)
	}()

	// 9. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.Server.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.Server.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.Server.CORS.AllowedHeaders),
		handlers.MaxAge(cfg.Server.CORS.MaxAge),
	}
	if cfg.Server.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	handler := handlers.CORS(corsOptions...)(r)
	handler = handlers.LoggingHandler(os.Stdout, handler)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Printf("Web 服务器启动于 %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Web 服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到关闭信号，正在关闭 Web 服务器...")

	cancelScheduler()
	wg.Wait()
	log.Println("调度器已停止。")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Web 服务器强制关闭: %v", err)
	}

	log.Println("Web 服务器已成功关闭")
}
