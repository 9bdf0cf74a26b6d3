package database

import (
	"fmt"

	"genealogy/config"
	"genealogy/logger"
	"genealogy/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接、迁移表结构并写入初始数据
func Init(cfg *config.Config) error {
	dialector, err := Dialector(&cfg.Database)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(sqlLogLevel(cfg.Log.SQLLevel)),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "sqlite" {
		// sqlite 单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	if err := Migrate(DB); err != nil {
		return err
	}
	if err := Seed(DB, &cfg.Superuser); err != nil {
		return err
	}

	logger.Info().Str("driver", cfg.Database.Driver).Msg("数据库初始化成功")
	return nil
}

// Dialector 根据配置选择数据库驱动
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
				cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.Charset)
		}
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBName)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.DBName + ".db"
		}
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
}

func sqlLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// Migrate 自动迁移数据库表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.Member{},
		&models.Partnership{},
		&models.Event{},
		&models.ContributionLevel{},
		&models.Sponsor{},
		&models.Income{},
		&models.ExpenseCategory{},
		&models.Expense{},
		&models.PasswordReset{},
		&models.RevokedToken{},
		&models.UploadedFile{},
	)
}

// Seed 写入初始数据：超级管理员与默认支出类别（仅当表为空时）
func Seed(db *gorm.DB, su *config.SuperuserConfig) error {
	var accountCount int64
	db.Model(&models.Account{}).Count(&accountCount)
	if accountCount == 0 && su != nil && su.Username != "" && su.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("密码加密失败: %w", err)
		}
		admin := models.Account{
			Username:    su.Username,
			Password:    string(hashed),
			IsActive:    true,
			IsSuperuser: true,
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("创建超级管理员失败: %w", err)
		}
		logger.Info().Str("username", admin.Username).Msg("已创建超级管理员")
	}

	var catCount int64
	db.Model(&models.ExpenseCategory{}).Count(&catCount)
	if catCount == 0 {
		var cats []models.ExpenseCategory
		for _, name := range models.GetDefaultExpenseCategories() {
			cats = append(cats, models.ExpenseCategory{Name: name})
		}
		if err := db.Create(&cats).Error; err != nil {
			return fmt.Errorf("初始化支出类别失败: %w", err)
		}
	}
	return nil
}

// GetDB 获取数据库连接
func GetDB() *gorm.DB {
	return DB
}
