// internal/service/template_service.go
package service

import (
    "strings"

    "github.com/okwach/wablast-backend/internal/model"
)

func RenderTemplate(template string, data map[string]string) string {
    result := template
    for k, v := range data {
        result = strings.ReplaceAll(result, "{{"+k+"}}", v)
    }
    return result
}

// RenderMessage fills a campaign template for one contact. Values are baked
// into the queue entry at enqueue time; the drainer never looks anything up.
func RenderMessage(c *model.Campaign, contact model.Contact) string {
    name := contact.Name
    if name == "" {
        name = "customer"
    }
    return RenderTemplate(c.MessageTemplate, map[string]string{
        "name":    name,
        "product": c.ProductName,
        "price":   c.ProductPrice,
    })
}
