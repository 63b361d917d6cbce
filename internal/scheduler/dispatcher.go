package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// claimBatchSize максимум задач, забираемых за один опрос очереди
const claimBatchSize = 50

// Dispatcher опрашивает очередь отложенных задач и доставляет созревшие
// задачи callback-эндпоинту системного завершения тестов.
// Доставка at-least-once: неудавшаяся задача возвращается в очередь
// с задержкой, обработчик на принимающей стороне обязан быть идемпотентным.
type Dispatcher struct {
	queue          *RedisTaskQueue
	httpClient     *http.Client
	callbackURL    string
	apiKey         string
	pollInterval   time.Duration
	redeliverDelay time.Duration
}

// NewDispatcher создает диспетчер отложенных задач
func NewDispatcher(queue *RedisTaskQueue, callbackURL, apiKey string, pollInterval, redeliverDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		queue:          queue,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		callbackURL:    callbackURL,
		apiKey:         apiKey,
		pollInterval:   pollInterval,
		redeliverDelay: redeliverDelay,
	}
}

// Run запускает цикл опроса очереди. Блокируется до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("[DeadlineDispatcher] Запуск, опрос каждые %v, callback %s", d.pollInterval, d.callbackURL)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.tick(ctx)
		case <-ctx.Done():
			log.Println("[DeadlineDispatcher] Остановка")
			return
		}
	}
}

// tick забирает созревшие задачи и доставляет их
func (d *Dispatcher) tick(ctx context.Context) {
	tasks, err := d.queue.ClaimDue(ctx, time.Now(), claimBatchSize)
	if err != nil {
		log.Printf("[DeadlineDispatcher] Ошибка чтения очереди: %v", err)
		return
	}

	for _, task := range tasks {
		if err := d.deliver(ctx, task); err != nil {
			log.Printf("[DeadlineDispatcher] Доставка задачи для попытки %s не удалась (доставок: %d): %v",
				task.AttemptID, task.Deliveries+1, err)
			// Возвращаем в очередь с задержкой: попытка завершится позже,
			// идемпотентный обработчик переживет и позднюю, и повторную доставку
			if err := d.queue.Requeue(ctx, task, time.Now().Add(d.redeliverDelay)); err != nil {
				log.Printf("[DeadlineDispatcher] КРИТИЧНО: не удалось вернуть задачу для попытки %s в очередь: %v",
					task.AttemptID, err)
			}
			continue
		}
		log.Printf("[DeadlineDispatcher] Задача для попытки %s доставлена", task.AttemptID)
	}
}

// deliver отправляет callback системного завершения
func (d *Dispatcher) deliver(ctx context.Context, task FinishTask) error {
	payload, err := json.Marshal(FinishTask{AttemptID: task.AttemptID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.callbackURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
