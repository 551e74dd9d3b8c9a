// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Open the *gorm.DB with TranslateError enabled so unique violations arrive
// as gorm.ErrDuplicatedKey. isDuplicate also recognises raw postgres and
// sqlite constraint errors for connections opened without it.
package gorm
