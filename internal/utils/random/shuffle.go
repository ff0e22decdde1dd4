// Package random выборки на crypto/rand
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Shuffle перемешивает срез на месте
func Shuffle[T any](items []T) error {
	return shuffleFirst(items, len(items))
}

// Sample возвращает до n случайных элементов без повторов.
// Исходный срез не меняется.
func Sample[T any](items []T, n int) ([]T, error) {
	if n <= 0 || len(items) == 0 {
		return []T{}, nil
	}
	if n > len(items) {
		n = len(items)
	}

	pool := append([]T(nil), items...)
	if err := shuffleFirst(pool, n); err != nil {
		return nil, err
	}
	return pool[:n], nil
}

// shuffleFirst частичный Фишер-Йетс: первые n позиций получают
// равновероятную выборку
func shuffleFirst[T any](items []T, n int) error {
	last := len(items) - 1
	for i := 0; i < n && i < last; i++ {
		j, err := intn(len(items) - i)
		if err != nil {
			return err
		}
		items[i], items[i+j] = items[i+j], items[i]
	}
	return nil
}

func intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}
