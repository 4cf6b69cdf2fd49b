package models

import "time"

// Student represents a learner record managed by the admin panel. NIK and
// NISN are treated as unique natural identifiers; uniqueness is enforced by
// pre-insert existence checks, not a store-level constraint.
type Student struct {
	ID        string    `db:"id" json:"id"`
	NIK       string    `db:"nik" json:"nik"`
	NISN      string    `db:"nisn" json:"nisn"`
	Nama      string    `db:"nama" json:"nama"`
	Tingkat   string    `db:"tingkat" json:"tingkat"`
	Rombel    string    `db:"rombel" json:"rombel"`
	TglMasuk  string    `db:"tgl_masuk" json:"tgl_masuk"`
	Terdaftar string    `db:"terdaftar" json:"terdaftar"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentUpdate carries the mutable subset of a student record. Edits never
// touch NIK, NISN or Nama.
type StudentUpdate struct {
	NISN      string `db:"nisn"`
	Tingkat   string `db:"tingkat"`
	Rombel    string `db:"rombel"`
	TglMasuk  string `db:"tgl_masuk"`
	Terdaftar string `db:"terdaftar"`
}
