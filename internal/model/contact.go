// internal/model/contact.go
package model

type ContactList struct {
    ID   int    `db:"id" json:"id"`
    Name string `db:"name" json:"name"`
}

type Contact struct {
    ID     int    `db:"id" json:"id"`
    ListID int    `db:"list_id" json:"list_id"`
    Phone  string `db:"phone" json:"phone"`
    Name   string `db:"name" json:"name"`
}
