package testutils

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// RawTitanic is ten passengers of the Kaggle training set. Rows 6 and 9
// have no Age, row 9 has no Embarked.
const RawTitanic = `PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5 21171,7.25,,S
2,1,1,"Cumings, Mrs. John Bradley (Florence Briggs Thayer)",female,38,1,0,PC 17599,71.2833,C85,C
3,1,3,"Heikkinen, Miss. Laina",female,26,0,0,STON/O2. 3101282,7.925,,S
4,1,1,"Futrelle, Mrs. Jacques Heath (Lily May Peel)",female,35,1,0,113803,53.1,C123,S
5,0,3,"Allen, Mr. William Henry",male,35,0,0,373450,8.05,,S
6,0,3,"Moran, Mr. James",male,,0,0,330877,8.4583,,Q
7,0,1,"McCarthy, Mr. Timothy J",male,54,0,0,17463,51.8625,E46,S
8,0,3,"Palsson, Master. Gosta Leonard",male,2,3,1,349909,21.075,,S
9,1,3,"Johnson, Mrs. Oscar W (Elisabeth Vilhelmina Berg)",female,,0,2,347742,11.1333,,
10,1,2,"Nasser, Mrs. Nicholas (Adele Achem)",female,14,1,0,237736,30.0708,,C
`

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Passengers generates a larger raw dataset by repeating RawTitanic with
// fresh PassengerIds, for tests which need more rows than ten.
func Passengers(copies int) string {
	lines := strings.Split(strings.TrimSpace(RawTitanic), "\n")
	var b strings.Builder
	b.WriteString(lines[0] + "\n")
	id := 1
	for c := 0; c < copies; c++ {
		for _, l := range lines[1:] {
			b.WriteString(strconv.Itoa(id) + l[strings.Index(l, ","):] + "\n")
			id++
		}
	}
	return b.String()
}
