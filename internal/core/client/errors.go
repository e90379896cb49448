package client

import "errors"

var (
	// ErrClientNotFound はクライアントが存在しない場合に返却されます。
	ErrClientNotFound = errors.New("client not found")
	// ErrNameAlreadyExists はクライアント名重複時に返却されます。
	ErrNameAlreadyExists = errors.New("client name already exists")
	// ErrClientHasAssignments はアサイン履歴が残っているクライアントを削除しようとした場合に返却されます。
	ErrClientHasAssignments = errors.New("client has assignments")
	// ErrInvalidName はクライアント名が不正な場合に返却されます。
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidEmail は連絡先メールアドレスが不正な場合に返却されます。
	ErrInvalidEmail = errors.New("invalid contact email")
	// ErrInvalidRequestedPosition は募集ポジション名が空または長すぎる場合に返却されます。
	ErrInvalidRequestedPosition = errors.New("invalid requested position")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrNoFieldsToUpdate は更新対象の項目が指定されていない場合に返却されます。
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
)
