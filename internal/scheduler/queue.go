package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// FinishTask - отложенная задача принудительного завершения попытки теста.
// Поле test_attempt_id совпадает с телом callback-запроса системного
// эндпоинта завершения.
type FinishTask struct {
	AttemptID string `json:"test_attempt_id"`
	// Deliveries счетчик попыток доставки (для логов; доставка at-least-once)
	Deliveries int `json:"deliveries,omitempty"`
}

// DeadlineScheduler определяет клиент долговременной очереди отложенных задач.
// Постановка задачи переживает рестарт процесса: дедлайн не теряется
// между планированием и доставкой.
type DeadlineScheduler interface {
	// ScheduleFinish ставит задачу принудительного завершения попытки
	// на момент fireAt
	ScheduleFinish(ctx context.Context, attemptID string, fireAt time.Time) error
}

// claimDueScript атомарно забирает созревшие задачи из sorted set:
// ZRANGEBYSCORE + ZREM одним шагом, чтобы задача досталась ровно одному
// диспетчеру за раз.
var claimDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, member in ipairs(due) do
    redis.call('ZREM', KEYS[1], member)
end
return due
`)

// RedisTaskQueue - долговременная очередь отложенных задач поверх Redis
// sorted set: member - JSON задачи, score - unix-время срабатывания.
type RedisTaskQueue struct {
	client   *redis.Client
	queueKey string
}

// NewRedisTaskQueue создает очередь отложенных задач
func NewRedisTaskQueue(client *redis.Client, queueKey string) *RedisTaskQueue {
	return &RedisTaskQueue{
		client:   client,
		queueKey: queueKey,
	}
}

// ScheduleFinish ставит задачу завершения попытки на момент fireAt
func (q *RedisTaskQueue) ScheduleFinish(ctx context.Context, attemptID string, fireAt time.Time) error {
	return q.enqueue(ctx, FinishTask{AttemptID: attemptID}, fireAt)
}

// enqueue добавляет задачу в sorted set
func (q *RedisTaskQueue) enqueue(ctx context.Context, task FinishTask, fireAt time.Time) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal finish task: %w", err)
	}

	err = q.client.ZAdd(ctx, q.queueKey, &redis.Z{
		Score:  float64(fireAt.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue finish task: %w", err)
	}
	return nil
}

// ClaimDue атомарно забирает до limit созревших задач
func (q *RedisTaskQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]FinishTask, error) {
	raw, err := claimDueScript.Run(ctx, q.client,
		[]string{q.queueKey},
		now.Unix(), limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to claim due tasks: %w", err)
	}

	tasks := make([]FinishTask, 0, len(raw))
	for _, member := range raw {
		var task FinishTask
		if err := json.Unmarshal([]byte(member), &task); err != nil {
			// Нечитаемый member не возвращаем в очередь - он не станет читаемым
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Requeue возвращает задачу в очередь на момент fireAt, увеличив счетчик
// доставок. Используется при неудачной доставке callback'а.
func (q *RedisTaskQueue) Requeue(ctx context.Context, task FinishTask, fireAt time.Time) error {
	task.Deliveries++
	return q.enqueue(ctx, task, fireAt)
}
