package state

// ring.go - кольцевой буфер фиксированной ёмкости
//
// Все скользящие окна BrokerState (тики, спреды, интервалы, слиппедж,
// латентность, история оценок) - ограниченные FIFO: добавление за O(1),
// при переполнении молча вытесняется старейший элемент. Память выделяется
// один раз при создании, в горячем пути аллокаций нет.

// Ring - ограниченный FIFO буфер поверх предвыделенного слайса
type Ring[T any] struct {
	buf  []T
	head int // индекс старейшего элемента
	size int
}

// NewRing создаёт буфер ёмкостью capacity (минимум 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf: make([]T, capacity),
	}
}

// Append добавляет элемент, вытесняя старейший при заполненном буфере.
func (r *Ring[T]) Append(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	// Буфер полон: пишем поверх старейшего и сдвигаем head
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// Len возвращает текущее количество элементов.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap возвращает ёмкость буфера.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// At возвращает элемент по индексу в порядке вставки (0 - старейший).
// Индекс обязан быть в [0, Len).
func (r *Ring[T]) At(i int) T {
	return r.buf[(r.head+i)%len(r.buf)]
}

// Last возвращает последний добавленный элемент.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.At(r.size - 1), true
}

// Values возвращает копию содержимого в порядке вставки.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Tail возвращает копию последних n элементов (или всех, если n > Len).
func (r *Ring[T]) Tail(n int) []T {
	if n > r.size {
		n = r.size
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.size - n + i)
	}
	return out
}
