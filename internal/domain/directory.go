package domain

import "time"

type Directory struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	ParentID  *int64     `json:"parent_id,omitempty" db:"parent_id"`
	SizeBytes int64      `json:"size_bytes" db:"size_bytes"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsRoot — корневая папка пользователя; её нельзя переименовать, переместить или удалить.
func (d *Directory) IsRoot() bool {
	return d.ParentID == nil
}

// DirectoryChild — подпапка в листинге вместе с агрегированной статистикой.
type DirectoryChild struct {
	Directory
	FilesCount      int `json:"files_count" db:"files_count"`
	SubfoldersCount int `json:"subfolders_count" db:"subfolders_count"`
}

// Breadcrumb — один элемент пути от корня до папки.
type Breadcrumb struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type DirectoryContent struct {
	Directory   Directory        `json:"directory"`
	Files       []File           `json:"files"`
	Directories []DirectoryChild `json:"directories"`
	Breadcrumbs []Breadcrumb     `json:"breadcrumbs"`
	Stats       DirectoryStats   `json:"stats"`
}

type DirectoryStats struct {
	TotalFiles          int   `json:"total_files"`
	TotalSubdirectories int   `json:"total_subdirectories"`
	TotalSize           int64 `json:"total_size"`
}
