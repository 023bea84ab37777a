package main

import (
	"storefront/internal/infra/persistence/model"

	"gorm.io/gen"
)

func main() {
	models := []any{
		model.UserModel{},
		model.UserDeviceModel{},
		model.CategoryModel{},
		model.ProductModel{},
		model.ProductImageModel{},
		model.ProductAttributeModel{},
		model.ReviewModel{},
		model.CartItemModel{},
		model.OrderModel{},
		model.OrderItemModel{},
		model.ShippingAddressModel{},
	}

	gen := gen.NewGenerator(gen.Config{
		OutPath: "./internal/infra/persistence/postgres/query",
	})

	gen.ApplyBasic(models...)

	gen.Execute()
}
