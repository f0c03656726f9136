package dataprep

import (
	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
)

// Raw passenger columns.
const (
	PassengerId = "PassengerId"
	Name        = "Name"
	Pclass      = "Pclass"
	Sex         = "Sex"
	Age         = "Age"
	SibSp       = "SibSp"
	Parch       = "Parch"
	Ticket      = "Ticket"
	Fare        = "Fare"
	Cabin       = "Cabin"
	Embarked    = "Embarked"

	// Label is present in training data only.
	Survived = "Survived"
)

// Derived columns.
const (
	HasCabin   = "HasCabin"
	FamilySize = "FamilySize"
)

// RawColumns must all be present in a raw dataset.
var RawColumns = []string{
	PassengerId, Name, Pclass, Sex, Age, SibSp, Parch, Ticket, Fare, Cabin, Embarked,
}

// Dropped are raw columns which never reach the cleaned dataset.
var Dropped = []string{PassengerId, Name, Ticket, Cabin}

// FeatureColumns is the cleaned feature layout, in order.
var FeatureColumns = []string{
	Pclass, Sex, Age, SibSp, Parch, Fare, Embarked, HasCabin, FamilySize,
}

// HasCabinOf is 1 when a cabin is recorded.
func HasCabinOf(cabin string) float64 {
	if data.IsMissing(cabin) {
		return 0
	}
	return 1
}

// FamilySizeOf counts the passenger with siblings/spouses and parents/children aboard.
func FamilySizeOf(sibsp, parch float64) float64 {
	return sibsp + parch + 1
}
