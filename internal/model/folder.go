package model

// DefaultFolderIcon is used when a folder is created without an icon.
const DefaultFolderIcon = "fa-folder"

// Folder groups notes in the sidebar. Icon is a Font Awesome class name.
type Folder struct {
	ID   int64  `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon" yaml:"icon"`
}

// FolderInput is the request body for creating a folder.
type FolderInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Icon string `json:"icon" validate:"max=64"`
}
