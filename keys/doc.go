// Package keys is the catalog of cache keys used by the storefront.
//
// Every key starts with the literal name of its entity family, followed by
// segments joined with ":". Segments are serialized deterministically and
// escaped, so a caller-supplied value such as "a:b" or "*" can never produce a
// second delimiter or a glob token:
//
//	keys.ProductByID("42")                  // product:id:42
//	keys.UserProfile("u1")                  // user:id:u1:profile
//	keys.ProductList(2, keys.Filters{"brand": "acme"})
//	                                        // product:list:2:brand=acme
//
// Each family has patterns for bulk invalidation. A pattern is a key prefix
// followed by ":*", which matches every key that shares those leading
// segments and nothing else:
//
//	keys.ProductPattern()     // product:*
//	keys.UserIDPattern("u1")  // user:id:u1:*
//
// Keys carry no tenant prefix. Stores that share a service between tenants
// prepend their own prefix when talking to it.
package keys
