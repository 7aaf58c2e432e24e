package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room does not exist")
	ErrSongNotFound  = errors.New("song does not exist")
	ErrDuplicateSong = errors.New("song already in queue")
	ErrAlreadyVoted  = errors.New("already upvoted")
	ErrNotVoted      = errors.New("not voted")

	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
)
