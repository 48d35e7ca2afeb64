// Package vec содержит чистые операции над embedding-векторами:
// поэлементное среднее, L2-нормализация и косинусная близость.
// Функции не выполняют I/O и не выделяют память сверх результата.
package vec

import "math"

// Mean возвращает поэлементное среднее векторов.
// Для пустого входа возвращает нулевой вектор размерности dim —
// это штатный вырожденный случай, а не ошибка.
func Mean(vectors [][]float32, dim int) []float32 {
	if len(vectors) == 0 {
		return make([]float32, dim)
	}

	sums := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := 0; i < len(sums) && i < len(v); i++ {
			sums[i] += float64(v[i])
		}
	}

	result := make([]float32, len(sums))
	n := float64(len(vectors))
	for i, s := range sums {
		result[i] = float32(s / n)
	}

	return result
}

// Normalize делит вектор на его L2-норму, возвращая вектор единичной длины.
// Вектор с нулевой нормой возвращается без изменений (защита от деления на ноль).
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	if sumSquares == 0 {
		return v
	}

	magnitude := math.Sqrt(sumSquares)
	result := make([]float32, len(v))
	for i, x := range v {
		result[i] = float32(float64(x) / magnitude)
	}

	return result
}

// CosineSimilarity возвращает скалярное произведение двух заранее нормализованных
// векторов, ограниченное диапазоном [0, 1].
// Несовпадение размерностей трактуется как нулевая близость: это дефект данных,
// а не повод останавливать пересчёт.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}

	return dot
}
