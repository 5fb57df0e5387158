package models

type Table struct {
	Schema string `json:"table_schema"`
	Name   string `json:"table_name"`
}
