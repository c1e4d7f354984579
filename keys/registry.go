package keys

// User keys. Entity-scoped entries sit under "user:id:<id>:" so that
// UserIDPattern matches exactly one user's data.

func UserProfile(userID string) string   { return User.Key("id", userID, "profile") }
func UserAddresses(userID string) string { return User.Key("id", userID, "addresses") }
func UserWishlist(userID string) string  { return User.Key("id", userID, "wishlist") }
func UserCart(userID string) string      { return User.Key("id", userID, "cart") }
func UserByEmail(email string) string    { return User.Key("email", email) }

func UserList(page int, filters Filters) string {
	return User.Key("list", page, filters.Signature())
}

func UserIDPattern(userID string) string { return User.Pattern("id", userID) }
func UserListPattern() string            { return User.Pattern("list") }
func UserPattern() string                { return User.Pattern() }

// Session keys.

func SessionByID(sessionID string) string { return Session.Key("id", sessionID) }
func UserSessions(userID string) string   { return Session.Key("user", userID) }
func SessionPattern() string              { return Session.Pattern() }

// Product keys.

func ProductByID(productID string) string { return Product.Key("id", productID) }
func ProductBySlug(slug string) string    { return Product.Key("slug", slug) }
func FeaturedProducts() string            { return Product.Key("featured") }
func RelatedProducts(productID string) string {
	return Product.Key("related", productID)
}

func ProductList(page int, filters Filters) string {
	return Product.Key("list", page, filters.Signature())
}

func ProductsByCategory(categoryID string, page int) string {
	return Product.Key("category", categoryID, page)
}

func ProductsBySubcategory(subcategoryID string, page int) string {
	return Product.Key("subcategory", subcategoryID, page)
}

func ProductsByChildCategory(childCategoryID string, page int) string {
	return Product.Key("childcategory", childCategoryID, page)
}

func ProductsByVendor(vendorID string, page int) string {
	return Product.Key("vendor", vendorID, page)
}

// ProductSearch expects the caller to normalize the query (trim, lower case).
func ProductSearch(query string, page int) string {
	return Product.Key("search", query, page)
}

func ProductPattern() string                   { return Product.Pattern() }
func ProductListPattern() string               { return Product.Pattern("list") }
func ProductSearchPattern() string             { return Product.Pattern("search") }
func ProductCategoryPattern(id string) string  { return Product.Pattern("category", id) }
func ProductVendorPattern(id string) string    { return Product.Pattern("vendor", id) }
func ProductSubcategoryPattern(id string) string {
	return Product.Pattern("subcategory", id)
}

// Banner keys.

func Banners() string                        { return Banner.Key("all") }
func BannerByID(bannerID string) string      { return Banner.Key("id", bannerID) }
func BannersByPlacement(place string) string { return Banner.Key("placement", place) }
func BannerPattern() string                  { return Banner.Pattern() }

// Category keys.

func Categories() string                     { return Category.Key("all") }
func CategoryTree() string                   { return Category.Key("tree") }
func CategoryByID(categoryID string) string  { return Category.Key("id", categoryID) }
func CategoryBySlug(slug string) string      { return Category.Key("slug", slug) }
func CategoryPattern() string                { return Category.Pattern() }

// Subcategory keys.

func Subcategories() string                 { return Subcategory.Key("all") }
func SubcategoryByID(id string) string      { return Subcategory.Key("id", id) }
func SubcategoriesByCategory(categoryID string) string {
	return Subcategory.Key("category", categoryID)
}
func SubcategoryPattern() string { return Subcategory.Pattern() }

// Child category keys.

func ChildCategories() string              { return ChildCategory.Key("all") }
func ChildCategoryByID(id string) string   { return ChildCategory.Key("id", id) }
func ChildCategoriesBySubcategory(subcategoryID string) string {
	return ChildCategory.Key("subcategory", subcategoryID)
}
func ChildCategoryPattern() string { return ChildCategory.Pattern() }

// Order keys.

func OrderByID(orderID string) string { return Order.Key("id", orderID) }
func OrderStats() string              { return Order.Key("stats") }

func OrdersByUser(userID string, page int) string {
	return Order.Key("user", userID, page)
}

func OrdersByVendor(vendorID string, page int) string {
	return Order.Key("vendor", vendorID, page)
}

func OrderList(page int, filters Filters) string {
	return Order.Key("list", page, filters.Signature())
}

func OrderPattern() string                   { return Order.Pattern() }
func OrderListPattern() string               { return Order.Pattern("list") }
func OrderUserPattern(userID string) string  { return Order.Pattern("user", userID) }
func OrderVendorPattern(id string) string    { return Order.Pattern("vendor", id) }

// Question-and-answer keys.

func QuestionByID(questionID string) string { return QnA.Key("id", questionID) }

func ProductQuestions(productID string, page int) string {
	return QnA.Key("product", productID, page)
}

func QnAProductPattern(productID string) string { return QnA.Pattern("product", productID) }
func QnAPattern() string                        { return QnA.Pattern() }

// Review keys.

func ReviewSummary(productID string) string { return Review.Key("summary", productID) }

func ProductReviews(productID string, page int) string {
	return Review.Key("product", productID, page)
}

func UserReviews(userID string, page int) string {
	return Review.Key("user", userID, page)
}

func ReviewProductPattern(productID string) string { return Review.Pattern("product", productID) }
func ReviewUserPattern(userID string) string       { return Review.Pattern("user", userID) }
func ReviewPattern() string                        { return Review.Pattern() }
