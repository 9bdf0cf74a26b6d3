package main

import (
	"flag"
	"fmt"
	"strings"

	"genealogy/api"
	"genealogy/config"
	"genealogy/database"
	"genealogy/logger"
	"genealogy/middleware"
	"genealogy/router"
	"genealogy/service"

	"github.com/robfig/cron/v3"
)

// @title 家族族谱管理系统 API
// @version 1.0
// @description 族谱成员、会费与收支、家族活动及账号管理
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println("家族族谱管理系统 v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	logger.Init(cfg.Log.Level)

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		logger.Info().Str("port", port).Msg("命令行指定端口")
	}

	config.PrintConfig()

	if err := database.Init(cfg); err != nil {
		logger.Fatal().Err(err).Msg("数据库初始化失败")
	}

	middleware.InitJWT(cfg)
	if err := api.RegisterValidators(); err != nil {
		logger.Fatal().Err(err).Msg("注册校验规则失败")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", purgeRevokedTokens(service.NewAccountService(database.GetDB(), nil))); err != nil {
		logger.Fatal().Err(err).Msg("注册定时任务失败")
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := router.SetupRouter(cfg, database.GetDB())

	logger.Info().
		Str("swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", cfg.Server.Port)).
		Str("api", fmt.Sprintf("http://localhost%s/api/v1/", cfg.Server.Port)).
		Msg("家族族谱管理系统已启动")

	if err := r.Run(cfg.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("服务器启动失败")
	}
}

// purgeRevokedTokens 清理已过期的注销记录
func purgeRevokedTokens(accounts *service.AccountService) func() {
	return func() {
		n, err := accounts.PurgeExpiredTokens()
		if err != nil {
			logger.Error().Err(err).Msg("清理注销记录失败")
			return
		}
		if n > 0 {
			logger.Debug().Int64("count", n).Msg("已清理过期注销记录")
		}
	}
}
