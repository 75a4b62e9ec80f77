package simpletxmanager

import "context"

// Journal хранилище, умеющее откатывать изменения транзакции
// Begin возвращает контекст транзакции и функцию ее завершения;
// вложенный Begin присоединяется к внешней транзакции
type Journal interface {
	Begin(ctx context.Context) (context.Context, func(commit bool))
}

// TransactionManager выполняет функции в транзакциях хранилища без БД (in-memory)
// Если fn вернула ошибку или запаниковала, изменения откатываются журналом хранилища
type TransactionManager struct {
	journal Journal
}

// NewTransactionManager создает менеджер; journal == nil - функции выполняются без отката
func NewTransactionManager(journal Journal) *TransactionManager {
	return &TransactionManager{journal: journal}
}

// Do выполняет fn в транзакции
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

// DoSerializable выполняет fn в транзакции
// Изоляцию конкурентных изменений обеспечивают блокировки сервисов
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

// DoReadOnly выполняет fn
func (m *TransactionManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *TransactionManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.journal == nil {
		return fn(ctx)
	}

	txCtx, finish := m.journal.Begin(ctx)
	committed := false
	defer func() {
		finish(committed)
	}()

	if err := fn(txCtx); err != nil {
		return err
	}
	committed = true
	return nil
}
