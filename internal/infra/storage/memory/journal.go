package memory

import "context"

type txKey struct{}

// journal откат изменений одной транзакции, в порядке их применения
// Пополняется и проигрывается под Store.mu
type journal struct {
	undo []func()
}

// Begin начинает транзакцию хранилища; вложенный вызов присоединяется к внешней
// При commit == false строки, измененные транзакцией, восстанавливаются.
// Изоляции между транзакциями нет: конкурентные изменения сериализуют блокировки сервисов
func (s *Store) Begin(ctx context.Context) (context.Context, func(commit bool)) {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return ctx, func(bool) {}
	}

	j := &journal{}
	finish := func(commit bool) {
		if commit {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
	}
	return context.WithValue(ctx, txKey{}, j), finish
}

// remember запоминает текущее состояние строки id для отката; вызывается под Store.mu
func remember[T any](ctx context.Context, rows map[int64]*T, id int64) {
	j, ok := ctx.Value(txKey{}).(*journal)
	if !ok {
		return
	}

	prev, existed := rows[id]
	var saved T
	if existed {
		saved = *prev
	}
	j.undo = append(j.undo, func() {
		if !existed {
			delete(rows, id)
			return
		}
		restored := saved
		rows[id] = &restored
	})
}

// rememberLogs запоминает длину журнала писем для отката; вызывается под Store.mu
func (s *Store) rememberLogs(ctx context.Context) {
	j, ok := ctx.Value(txKey{}).(*journal)
	if !ok {
		return
	}
	n := len(s.emailLogs)
	j.undo = append(j.undo, func() {
		s.emailLogs = s.emailLogs[:n]
	})
}
