package model

import "github.com/google/uuid"

// IsValidID はIDがハイフン区切りのUUID表記かどうかを判定する。
// DBのUUID列に渡す前に確認し、不正な形式は「見つからない」として扱う。
func IsValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
