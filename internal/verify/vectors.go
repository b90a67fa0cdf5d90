package verify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Vectors 内存词向量表
type Vectors struct {
	dim   int
	table map[string][]float64
}

// NewVectors 从内存数据创建词向量表
func NewVectors(table map[string][]float64) *Vectors {
	v := &Vectors{table: make(map[string][]float64, len(table))}
	for word, vec := range table {
		if v.dim == 0 {
			v.dim = len(vec)
		}
		v.table[strings.ToLower(word)] = vec
	}
	return v
}

// Vector 查询单词向量
func (v *Vectors) Vector(word string) ([]float64, bool) {
	vec, ok := v.table[strings.ToLower(word)]
	return vec, ok
}

func (v *Vectors) Len() int { return len(v.table) }
func (v *Vectors) Dim() int { return v.dim }

// LoadVectors 加载 GloVe 文本格式词向量文件
func LoadVectors(ctx context.Context, path string) (*Vectors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer f.Close()

	return ReadVectors(ctx, f)
}

// ReadVectors 解析 "word v1 v2 ..." 每行一个词
func ReadVectors(ctx context.Context, r io.Reader) (*Vectors, error) {
	v := &Vectors{table: make(map[string][]float64)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		vec := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("vectors line %d: %w", line, err)
			}
			vec[i] = x
		}

		if v.dim == 0 {
			v.dim = len(vec)
		} else if len(vec) != v.dim {
			return nil, fmt.Errorf("vectors line %d: dimension %d, want %d", line, len(vec), v.dim)
		}
		v.table[strings.ToLower(fields[0])] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}

	return v, nil
}
