// dephealth.go — интеграция с topologymetrics SDK: мониторинг
// доступности настроенных fediverse-инстансов.
//
// На каждый инстанс конфигурации заводится HTTP checker по его
// базовому URL. Инстансы не критичны: недоступность одного из них
// не делает приложение нездоровым, прогон остальных продолжается.
//
// Метрики публикуются на /metrics вместе с остальными:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory

	"github.com/arturkryukov/fedarch/internal/config"
)

// serviceID — имя вершины графа зависимостей текущего приложения.
const serviceID = "fedarch"

// DephealthService — мониторинг доступности инстансов.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт мониторинг по списку инстансов.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(
	group string,
	instances []config.InstanceConfig,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	opts := make([]dephealth.Option, 0, 1+len(instances))
	opts = append(opts, dephealth.WithLogger(logger))
	for i := range instances {
		inst := &instances[i]
		opts = append(opts, dephealth.HTTP(inst.Name,
			dephealth.FromURL(inst.BaseURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(false),
		))
	}

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку инстансов.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг доступности инстансов запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг доступности инстансов остановлен")
}

// Health возвращает текущее состояние инстансов.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
