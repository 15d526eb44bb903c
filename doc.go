// Package changetracking exposes SQL Server change tracking through GORM.
//
//	db.Use(&changetracking.Plugin{Config: changetracking.Config{Database: "shop"}})
//	tr, _ := changetracking.From(db)
//	_ = tr.EnableDatabase(2, changetracking.Days, true)
//	_ = tr.EnableTable(&Order{}, false)
//	changes, _ := changetracking.GetChanges[Order](tr, lastVersion)
package changetracking
