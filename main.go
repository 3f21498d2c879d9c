package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"paylio/commands"
	"paylio/config"
	"paylio/database"
	"paylio/routes"
	"paylio/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	if err := run(cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run запускает веб-сервер или административную команду из args
func run(cfg *config.Config, args []string, out io.Writer) error {
	name := "serve"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	switch name {
	case "help", "-h", "--help":
		fmt.Fprint(out, commands.Usage())
		return nil
	case "serve":
	default:
		if _, ok := commands.Lookup(name); !ok {
			return fmt.Errorf("unknown command %q\n\n%s", name, commands.Usage())
		}
	}

	if err := utils.InitLoggers(cfg.Log.Dir); err != nil {
		return fmt.Errorf("ошибка инициализации логгеров: %w", err)
	}

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	metrics := utils.NewMetrics()
	if name != "serve" {
		err := commands.Run(name, args, commands.Deps{DB: db, Metrics: metrics, Out: out})
		if err != nil && !errors.Is(err, commands.ErrPrecondition) {
			utils.LogError("Команда %s завершилась с ошибкой: %v", name, err)
		}
		return err
	}

	return serve(cfg, db, metrics)
}

func serve(cfg *config.Config, db *database.Database, metrics *utils.Metrics) error {
	gin.SetMode(gin.ReleaseMode)

	// Создаем роутер
	router, err := routes.NewRouter(cfg, db, metrics)
	if err != nil {
		return err
	}

	// Запускаем сервер
	port := fmt.Sprintf(":%d", cfg.Server.Port)
	utils.LogInfo("Сервер запущен на порту %s", port)
	if err := http.ListenAndServe(port, router); err != nil {
		return fmt.Errorf("ошибка запуска сервера: %v", err)
	}
	return nil
}
